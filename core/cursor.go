package core

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
)

var cursorSalt = []byte("staffroom.core.cursor")

// Cursor marks the last seen item of a page: its collection, sort key and id.
type Cursor struct {
	Collection string `json:"c"`
	Key        string `json:"k"`
	ID         string `json:"i"`
}

// CursorCodec turns cursors into signed opaque tokens and back.
type CursorCodec struct {
	key [32]byte
}

func NewCursorCodec(secretKey string) *CursorCodec {
	return &CursorCodec{key: sha256.Sum256(append(cursorSalt, secretKey...))}
}

func (cc *CursorCodec) sign(payload string) string {
	h := hmac.New(sha256.New, cc.key[:])
	_, _ = h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Encode returns the opaque token for `c`.
func (cc *CursorCodec) Encode(c Cursor) string {
	data, _ := json.Marshal(c)
	payload := base64.RawURLEncoding.EncodeToString(data)
	return payload + "." + cc.sign(payload)
}

// Decode parses a token produced by Encode for the given collection.
// ok is false for malformed, tampered or foreign tokens; callers must then return no results.
func (cc *CursorCodec) Decode(collection, token string) (c Cursor, ok bool) {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return Cursor{}, false
	}
	if subtle.ConstantTimeCompare([]byte(cc.sign(parts[0])), []byte(parts[1])) == 0 {
		return Cursor{}, false
	}
	data, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Cursor{}, false
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, false
	}
	if c.Collection != collection || c.ID == "" {
		return Cursor{}, false
	}
	return c, true
}
