package payment

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

const signatureField = "signature"

// SigningString builds the gateway's canonical form: every non-empty field
// except the signature, sorted by key, values query-escaped, joined with '&',
// then the passphrase appended when one is configured.
func SigningString(fields map[string]string, passphrase string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == signatureField {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		v := strings.TrimSpace(fields[k])
		if v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}
	if passphrase != "" {
		b.WriteString("&passphrase=")
		b.WriteString(url.QueryEscape(strings.TrimSpace(passphrase)))
	}
	return b.String()
}

// Sign returns the lowercase hex MD5 of the signing string. MD5 is what the
// gateway specifies.
func Sign(fields map[string]string, passphrase string) string {
	sum := md5.Sum([]byte(SigningString(fields, passphrase)))
	return hex.EncodeToString(sum[:])
}

// Verify compares the payload's signature field with the computed one.
func Verify(fields map[string]string, passphrase string) bool {
	got := strings.ToLower(strings.TrimSpace(fields[signatureField]))
	if got == "" {
		return false
	}
	want := Sign(fields, passphrase)
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
