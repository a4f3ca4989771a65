package sessionstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fetlife-adapter/internal/scrapers/fetlife"
)

const currentVersion = 1

// ErrUnsupportedVersion is returned for blobs written by a newer release. They are left
// untouched in storage.
var ErrUnsupportedVersion = errors.New("sessionstore: unsupported blob version")

// blob is the persisted form of an account. Fields are only ever added, unknown fields
// are ignored on decode.
type blob struct {
	Version  int              `json:"version"`
	UserId   int64            `json:"user_id"`
	Nickname string           `json:"nickname"`
	Cookies  []fetlife.Cookie `json:"cookies"`
	SavedAt  int64            `json:"saved_at,omitempty"`

	// CookieFile is the cookies.txt contents stored by unversioned blobs.
	CookieFile string `json:"cookie_file,omitempty"`
}

func encode(account *fetlife.Account, savedAt int64) ([]byte, error) {
	b := blob{
		Version:  currentVersion,
		UserId:   account.UserId,
		Nickname: account.Nickname,
		Cookies:  account.Jar.Cookies(),
		SavedAt:  savedAt,
	}
	return json.Marshal(b)
}

func decode(accountId string, data []byte) (*fetlife.Account, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}

	account := fetlife.NewAccount(accountId)
	account.UserId = b.UserId
	account.Nickname = b.Nickname

	switch {
	case b.Version > currentVersion:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, b.Version)
	case b.Version == 0:
		jar, err := fetlife.ReadNetscapeJar(strings.NewReader(b.CookieFile))
		if err != nil {
			return nil, fmt.Errorf("decode legacy cookie file: %w", err)
		}
		account.Jar = jar
	default:
		account.Jar = fetlife.JarOf(b.Cookies...)
	}
	return account, nil
}
