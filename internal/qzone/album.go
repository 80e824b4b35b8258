package qzone

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"

	"qzsync/internal/feed"
	"qzsync/internal/qzerr"
)

const photoListURL = proxyBase + "/h5.qzone.qq.com/proxy/domain/photo.qzone.qq.com/fcgi-bin/cgi_floatview_photo_list_v2"

type photoListData struct {
	T      json.Number `json:"t"`
	Photos []struct {
		URL     string      `json:"url"`
		PreURL  string      `json:"pre"`
		Width   json.Number `json:"width"`
		Height  json.Number `json:"height"`
		IsVideo json.Number `json:"is_video"`
		VideoInfo struct {
			URL string `json:"video_url"`
		} `json:"video_info"`
	} `json:"photos"`
}

// AlbumPhotos resolves a photo-album reference to its raw media URLs. The
// endpoint echoes the random t parameter; a mismatch means the response was
// served for another request and is discarded.
func (c *Client) AlbumPhotos(ctx context.Context, owner int64, ref feed.AlbumRef) ([]feed.VisualMedia, error) {
	t := fmt.Sprint(rand.Int63())
	query := url.Values{
		"topicId":    {ref.TopicID},
		"picKey":     {ref.PickKey},
		"hostUin":    {fmt.Sprint(owner)},
		"uin":        {fmt.Sprint(c.creds.Uin())},
		"appid":      {"311"},
		"cmtNum":     {"0"},
		"likeNum":    {"0"},
		"inCharset":  {"utf-8"},
		"outCharset": {"utf-8"},
		"offset":     {"0"},
		"number":     {"99"},
		"t":          {t},
	}

	w, err := c.get(ctx, photoListURL, query)
	if err != nil {
		return nil, err
	}

	var data photoListData
	if err := json.Unmarshal(w.Data, &data); err != nil {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "decode photo list", ref.TopicID, err)
	}
	if data.T.String() != t {
		return nil, qzerr.Wrap(qzerr.ErrPermanent, "qzone", "photo list",
			fmt.Sprintf("echo mismatch: sent %s got %s", t, data.T.String()), nil)
	}

	media := make([]feed.VisualMedia, 0, len(data.Photos))
	for _, p := range data.Photos {
		width, _ := p.Width.Int64()
		height, _ := p.Height.Int64()
		isVideo, _ := p.IsVideo.Int64()
		m := feed.VisualMedia{
			RawURL:   p.URL,
			ThumbURL: p.PreURL,
			Width:    int(width),
			Height:   int(height),
			IsVideo:  isVideo != 0,
		}
		if m.IsVideo && p.VideoInfo.URL != "" {
			m.RawURL = p.VideoInfo.URL
		}
		if m.RawURL == "" {
			m.RawURL = m.ThumbURL
		}
		media = append(media, m)
	}
	return media, nil
}
