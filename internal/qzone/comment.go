package qzone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"qzsync/internal/qzerr"
)

const (
	addCommentURL = proxyBase + "/taotao.qq.com/cgi-bin/emotion_cgi_re_feeds"
	detailURL     = proxyBase + "/taotao.qq.com/cgi-bin/emotion_cgi_msgdetail_v6"
)

// AddComment posts a comment on a feed owned by owner.
func (c *Client) AddComment(ctx context.Context, owner int64, fid, content string) error {
	form := url.Values{
		"uin":        {fmt.Sprint(c.creds.Uin())},
		"hostuin":    {fmt.Sprint(owner)},
		"srcId":      {fid},
		"content":    {content},
		"isSignIn":   {"0"},
		"feedsType":  {"100"},
		"inCharset":  {"utf-8"},
		"outCharset": {"utf-8"},
		"format":     {"purejson"},
	}
	_, err := c.post(ctx, addCommentURL, url.Values{}, form)
	return err
}

type detailData struct {
	Content string `json:"content"`
	Name    string `json:"name"`
}

// ShuoshuoDetail fetches the detail view of a single post.
func (c *Client) ShuoshuoDetail(ctx context.Context, owner int64, fid string) (string, error) {
	query := url.Values{
		"uin":           {fmt.Sprint(owner)},
		"tid":           {fid},
		"t1_source":     {"1"},
		"not_trunc_con": {"1"},
		"format":        {"jsonp"},
	}
	w, err := c.get(ctx, detailURL, query)
	if err != nil {
		return "", err
	}
	var data detailData
	if err := json.Unmarshal(w.Data, &data); err != nil {
		return "", qzerr.Wrap(qzerr.ErrPermanent, "qzone", "decode detail", fid, err)
	}
	return data.Content, nil
}
