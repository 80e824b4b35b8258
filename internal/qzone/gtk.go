package qzone

// Gtk derives the g_tk request token from p_skey. The remote service uses a
// DJB-style hash masked to 31 bits.
func Gtk(pSkey string) int32 {
	hash := int64(5381)
	for _, c := range []byte(pSkey) {
		hash = (hash*33 + int64(c)) & 0x7fffffff
	}
	return int32(hash)
}
