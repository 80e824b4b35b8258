package feed

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxAppID is the first unsupported ecosystem source id. Entries at or above
// it carry mini-program payloads the splitter cannot render.
const MaxAppID = 4096

const adPrefix = "advertisement_app"

// Raw is one entry of the listing endpoint's data.data array. Numeric fields
// arrive as either numbers or strings depending on the endpoint revision, so
// everything ambiguous is a json.Number.
type Raw struct {
	Uin      json.Number `json:"uin"`
	Abstime  json.Number `json:"abstime"`
	Key      string      `json:"key"`
	AppID    json.Number `json:"appid"`
	TypeID   json.Number `json:"typeid"`
	Nickname string      `json:"nickname"`
	HTML     string      `json:"html"`
	Unikey   string      `json:"unikey"`
	Curkey   string      `json:"curkey"`
}

// IsEmpty reports whether the entry carries no content worth mirroring.
func (r *Raw) IsEmpty() bool {
	return strings.TrimSpace(r.HTML) == "" && strings.TrimSpace(r.Key) == ""
}

// IsAd reports whether the entry is an injected advertisement.
func (r *Raw) IsAd() bool {
	return strings.HasPrefix(r.Key, adPrefix) || strings.HasPrefix(r.Unikey, adPrefix)
}

// Parse converts a raw listing entry into a Feed. Entities are extracted from
// the body HTML; media and forward resolution happen later in enrichment.
func Parse(r *Raw) (*Feed, error) {
	uin, err := r.Uin.Int64()
	if err != nil {
		return nil, fmt.Errorf("parse feed uin %q: %w", r.Uin.String(), err)
	}
	abstime, err := r.Abstime.Int64()
	if err != nil {
		return nil, fmt.Errorf("parse feed abstime %q: %w", r.Abstime.String(), err)
	}
	appid, err := r.AppID.Int64()
	if err != nil {
		return nil, fmt.Errorf("parse feed appid %q: %w", r.AppID.String(), err)
	}
	typeid, err := r.TypeID.Int64()
	if err != nil {
		return nil, fmt.Errorf("parse feed typeid %q: %w", r.TypeID.String(), err)
	}

	f := &Feed{
		Uin:      uin,
		Abstime:  abstime,
		Fid:      r.Key,
		AppID:    int(appid),
		TypeID:   int(typeid),
		Nickname: r.Nickname,
		Unikey:   r.Unikey,
		Curkey:   r.Curkey,
		HTML:     r.HTML,
	}
	f.Entities = EntitiesFromHTML(r.HTML)
	return f, nil
}
