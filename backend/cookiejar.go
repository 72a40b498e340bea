package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"

	"github.com/viant/afs"
	"golang.org/x/net/publicsuffix"
)

// NewCookieJar builds a policy-correct cookie jar, pairing net/http/cookiejar
// with the public suffix list the way every cookie-aware client in the
// ecosystem does.
func NewCookieJar() (*cookiejar.Jar, error) {
	return cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
}

type cookieRecord struct {
	URL     string
	Cookies []*http.Cookie
}

// LoadCookieFile populates jar from a JSON cookie file addressed by an afs
// URL, so the file may live on local disk, S3, or GCS without backend
// caring which.
func LoadCookieFile(ctx context.Context, path string, jar *cookiejar.Jar) error {
	service := afs.New()
	reader, err := service.OpenURL(ctx, path)
	if err != nil {
		return err
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	var records []cookieRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for _, rec := range records {
		u, err := url.Parse(rec.URL)
		if err != nil {
			continue
		}
		jar.SetCookies(u, rec.Cookies)
	}
	return nil
}

// SaveCookieFile persists jar's cookies for the given URLs to an afs URL.
func SaveCookieFile(ctx context.Context, path string, jar *cookiejar.Jar, urls []string) error {
	service := afs.New()
	var records []cookieRecord
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		cookies := jar.Cookies(u)
		if len(cookies) == 0 {
			continue
		}
		records = append(records, cookieRecord{URL: raw, Cookies: cookies})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return service.Upload(ctx, path, os.FileMode(0644), bytes.NewReader(data))
}
