package qzone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"qzsync/internal/qzerr"
)

const feedsCountURL = proxyBase + "/g.qzone.qq.com/cgi-bin/friendshow/cgi_get_feeds_count.cgi"

type feedsCountData struct {
	ActiveCnt  int `json:"newfeeds_uinlist_count"`
	NewFeeds   int `json:"friendFeeds_new_cnt"`
	SpecialCnt int `json:"special_cnt"`
}

// FeedsCount is the low-cost heartbeat probe. It returns the remote hint of
// how many new friend feeds exist since the last listing walk.
func (c *Client) FeedsCount(ctx context.Context) (int, error) {
	query := url.Values{
		"uin":        {fmt.Sprint(c.creds.Uin())},
		"useutf8":    {"1"},
		"outCharset": {"utf-8"},
	}
	w, err := c.get(ctx, feedsCountURL, query)
	if err != nil {
		return 0, err
	}
	var data feedsCountData
	if err := json.Unmarshal(w.Data, &data); err != nil {
		return 0, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "decode feeds count", "", err)
	}
	return data.NewFeeds, nil
}
