package qzone

import (
	"context"
	"fmt"
	"net/url"
)

const (
	doLikeURL = proxyBase + "/w.qzone.qq.com/cgi-bin/likes/internal_dolike_app"
	unlikeURL = proxyBase + "/w.qzone.qq.com/cgi-bin/likes/internal_unlike_app"
)

// LikeArgs identifies the likeable object of a feed.
type LikeArgs struct {
	AppID  int
	TypeID int
	Fid    string
	Unikey string
	Curkey string
}

// DoLike likes the referenced object.
func (c *Client) DoLike(ctx context.Context, args LikeArgs) error {
	return c.likeRequest(ctx, doLikeURL, args)
}

// DoUnlike removes a like. Some appids may no longer support the endpoint;
// the remote error is surfaced unchanged so callers can fall back.
func (c *Client) DoUnlike(ctx context.Context, args LikeArgs) error {
	return c.likeRequest(ctx, unlikeURL, args)
}

func (c *Client) likeRequest(ctx context.Context, endpoint string, args LikeArgs) error {
	form := url.Values{
		"opuin":    {fmt.Sprint(c.creds.Uin())},
		"unikey":   {args.Unikey},
		"curkey":   {args.Curkey},
		"appid":    {fmt.Sprint(args.AppID)},
		"typeid":   {fmt.Sprint(args.TypeID)},
		"fid":      {args.Fid},
		"opr_type": {"like"},
		"format":   {"purejson"},
		"active":   {"0"},
		"fupdate":  {"1"},
		"from":     {"1"},
	}
	_, err := c.post(ctx, endpoint, url.Values{}, form)
	return err
}
