package store

// Cookie is the persisted credential set for an account. A cookie is either
// complete or absent; partial sets are never written.
type Cookie struct {
	PSkey     string
	Pt4Token  string
	PtGuidSig string
	Ptcz      string
}

// Complete reports whether every required field is present.
func (c Cookie) Complete() bool {
	return c.PSkey != "" && c.Pt4Token != "" && c.PtGuidSig != "" && c.Ptcz != ""
}

// cookieColumns is the required field set for the cookie table. A persisted
// schema missing any of these is dropped and recreated; cached credentials
// are sacrificed to schema evolution rather than migrated.
var cookieColumns = []string{"uin", "p_skey", "pt4_token", "pt_guid_sig", "ptcz"}

// FeedRecord mirrors one row of the feed table.
type FeedRecord struct {
	Uin      int64
	Abstime  int64
	Fid      string
	AppID    int
	TypeID   int
	Nickname string
	Curkey   string
	Unikey   string
}

// Stats aggregates table counts for diagnostics.
type Stats struct {
	Feeds     int
	Messages  int
	Delivered int
	Blocked   int
	Cookies   int
}
