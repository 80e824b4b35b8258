package qzone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/qzerr"
)

const (
	feedsMoreURL    = proxyBase + "/ic2.qzone.qq.com/cgi-bin/feeds/feeds3_html_more"
	completeFeedURL = proxyBase + "/taotao.qq.com/cgi-bin/emotion_cgi_ic_getcomments"

	// PageSize is the fixed count argument of the listing endpoint.
	PageSize = 10
)

// FeedPage is one page of the reverse-chronological listing.
type FeedPage struct {
	Entries []feed.Raw
	// Externparam is the opaque cursor for the subsequent page.
	Externparam string
}

type feedsMoreData struct {
	Data []feed.Raw `json:"data"`
	Main struct {
		Externparam string `json:"externparam"`
	} `json:"main"`
}

// FeedsMore fetches one listing page. Pages are 1-based; externparam must be
// the cursor carried by the previous page (empty on page 1).
func (c *Client) FeedsMore(ctx context.Context, pagenum int, externparam string) (*FeedPage, error) {
	query := url.Values{
		"uin":              {fmt.Sprint(c.creds.Uin())},
		"pagenum":          {fmt.Sprint(pagenum)},
		"count":            {fmt.Sprint(PageSize)},
		"usertime":         {fmt.Sprint(time.Now().UnixMilli())},
		"externparam":      {externparam},
		"begintime":        {"0"},
		"scope":            {"0"},
		"view":             {"1"},
		"daylist":          {""},
		"uinlist":          {""},
		"gid":              {""},
		"flag":             {"1"},
		"filter":           {"all"},
		"applist":          {"all"},
		"refresh":          {"0"},
		"aisortEndTime":    {"0"},
		"aisortOffset":     {"0"},
		"aisortBeginTime":  {"0"},
		"firstGetGroup":    {"0"},
		"icServerTime":     {"0"},
		"mixnocache":       {"0"},
		"scene":            {"0"},
		"dayspac":          {"undefined"},
		"sidomain":         {"qzonestyle.gtimg.cn"},
		"useutf8":          {"1"},
		"outputhtmlfeed":   {"1"},
		"format":           {"jsonp"},
		"begin_time":       {"0"},
		"set_visitor_flag": {"0"},
	}

	w, err := c.get(ctx, feedsMoreURL, query)
	if err != nil {
		return nil, err
	}

	var data feedsMoreData
	if err := json.Unmarshal(w.Data, &data); err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "decode listing page", "", err)
	}
	return &FeedPage{Entries: data.Data, Externparam: data.Main.Externparam}, nil
}

type completeFeedData struct {
	Content string `json:"newFeedXML"`
}

// CompleteFeed fetches the untruncated body HTML for a feed.
func (c *Client) CompleteFeed(ctx context.Context, owner int64, fid string) (string, error) {
	form := url.Values{
		"uin":       {fmt.Sprint(owner)},
		"tid":       {fid},
		"t1_source": {"1"},
		"ftype":     {"0"},
		"sort":      {"0"},
		"pos":       {"0"},
		"num":       {"20"},
		"format":    {"jsonp"},
	}
	w, err := c.post(ctx, completeFeedURL, url.Values{}, form)
	if err != nil {
		return "", err
	}
	var data completeFeedData
	if err := json.Unmarshal(w.Data, &data); err != nil {
		return "", qzerr.Wrap(qzerr.ErrPermanent, "qzone", "decode complete feed", fid, err)
	}
	return data.Content, nil
}
