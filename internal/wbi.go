package internal

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// mixinKeyTable is the platform's fixed permutation over the concatenated
// img and sub keys. It is public and constant; changing a single entry
// invalidates every signature.
var mixinKeyTable = [64]int{
	46, 47, 18, 2, 53, 8, 23, 32, 15, 50, 10, 31, 58, 3, 45, 35, 27, 43, 5, 49,
	33, 9, 42, 19, 29, 28, 14, 39, 12, 38, 41, 13, 37, 48, 7, 16, 24, 55, 40,
	61, 26, 17, 0, 1, 60, 51, 30, 4, 22, 25, 54, 21, 56, 59, 6, 63, 57, 62, 11,
	36, 20, 34, 44, 52,
}

// wbiKeys is the signing key pair issued by the platform, plus the time it
// was fetched so callers can refresh a stale pair explicitly.
type wbiKeys struct {
	ImgKey    string
	SubKey    string
	FetchedAt time.Time
}

// stale reports whether the pair is older than ttl (or was never fetched).
func (k wbiKeys) stale(now time.Time, ttl time.Duration) bool {
	if k.ImgKey == "" || k.SubKey == "" {
		return true
	}
	return now.Sub(k.FetchedAt) > ttl
}

// mixinKey permutes imgKey+subKey through the fixed table and truncates to
// 32 characters.
func mixinKey(imgKey, subKey string) string {
	orig := imgKey + subKey
	var sb strings.Builder
	sb.Grow(32)
	for _, idx := range mixinKeyTable {
		if idx < len(orig) {
			sb.WriteByte(orig[idx])
		}
	}
	key := sb.String()
	if len(key) > 32 {
		key = key[:32]
	}
	return key
}

// signParams signs a parameter set with the WBI scheme: add wts, sort keys,
// strip the platform's banned characters from every value, URL-encode, and
// append w_rid = MD5(query + mixinKey). Pure function of its inputs; the
// caller controls the clock.
func signParams(params url.Values, imgKey, subKey string, now time.Time) url.Values {
	signed := url.Values{}
	for key, vals := range params {
		for _, v := range vals {
			signed.Add(key, stripBannedChars(v))
		}
	}
	signed.Set("wts", strconv.FormatInt(now.Unix(), 10))

	// url.Values.Encode sorts by key, matching the scheme's lexicographic
	// ordering requirement.
	query := signed.Encode()

	sum := md5.Sum([]byte(query + mixinKey(imgKey, subKey)))
	signed.Set("w_rid", hex.EncodeToString(sum[:]))
	return signed
}

// stripBannedChars removes the characters the platform excludes from
// signature input: ! ' ( ) *
func stripBannedChars(v string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '!', '\'', '(', ')', '*':
			return -1
		}
		return r
	}, v)
}
