// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package web

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// AllSky captures land in dated folders as image-YYYYMMDDHHMMSS.jpg.
var allSkyImagePattern = regexp.MustCompile(`(?i)^image-(\d{14})\.jpe?g$`)

const allSkyTimestampLayout = "20060102150405"

// findLatestImage scans the newest 10 all-digit capture folders and
// returns the path of the most recent image, or "" when none exists.
func findLatestImage(root string) string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}

	var folders []string
	for _, e := range entries {
		if e.IsDir() && isAllDigits(e.Name()) {
			folders = append(folders, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(folders)))
	if len(folders) > 10 {
		folders = folders[:10]
	}

	var bestTime time.Time
	var bestPath string
	for _, folder := range folders {
		files, err := os.ReadDir(filepath.Join(root, folder))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			m := allSkyImagePattern.FindStringSubmatch(f.Name())
			if m == nil {
				continue
			}
			ts, err := time.Parse(allSkyTimestampLayout, m[1])
			if err != nil {
				continue
			}
			if ts.After(bestTime) {
				bestTime = ts
				bestPath = filepath.Join(root, folder, f.Name())
			}
		}
	}
	return bestPath
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

type latestImageInfo struct {
	Available    bool   `json:"available"`
	URL          string `json:"url,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

func (s *Service) serveLatestImageInfo(w http.ResponseWriter, r *http.Request) {
	if s.conf.AllSky.PublicURL != "" {
		writeJSON(w, http.StatusOK, latestImageInfo{
			Available:    true,
			URL:          fmt.Sprintf("/latest-image?cacheBust=%d", time.Now().Unix()),
			LastModified: time.Now().Format(time.RFC3339),
		})
		return
	}

	path := findLatestImage(s.conf.AllSky.ImagesRoot)
	if path == "" {
		writeJSON(w, http.StatusNotFound, latestImageInfo{Available: false})
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		writeJSON(w, http.StatusNotFound, latestImageInfo{Available: false})
		return
	}
	writeJSON(w, http.StatusOK, latestImageInfo{
		Available:    true,
		URL:          fmt.Sprintf("/latest-image?cache=%d", info.ModTime().Unix()),
		LastModified: info.ModTime().Format(time.RFC3339),
	})
}

func (s *Service) serveLatestImageFile(w http.ResponseWriter, r *http.Request) {
	if s.conf.AllSky.PublicURL != "" {
		if s.servePublicImage(w) {
			return
		}
		// fall through to the local directory
	}

	path := findLatestImage(s.conf.AllSky.ImagesRoot)
	if path == "" {
		http.NotFound(w, r)
		return
	}
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeFile(w, r, path)
}

// servePublicImage proxies the newest image from a public AllSky page. The
// page either serves the image directly or embeds it as the first <img>
// tag. Reports whether a response was written.
func (s *Service) servePublicImage(w http.ResponseWriter) bool {
	client := &http.Client{Timeout: 10 * time.Second}

	resp, err := client.Get(s.conf.AllSky.PublicURL)
	if err != nil {
		s.log.Warn("failed to fetch public AllSky page: %v", err)
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		s.log.Warn("public AllSky page returned %s", resp.Status)
		return false
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(strings.ToLower(contentType), "image/") {
		w.Header().Set("Content-Type", contentType)
		io.Copy(w, resp.Body)
		return true
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		s.log.Warn("failed to read public AllSky page: %v", err)
		return false
	}
	imageURL := extractImageSrc(string(body), s.conf.AllSky.PublicURL)
	if imageURL == "" {
		s.log.Warn("no <img> tag found on AllSky public page")
		return false
	}

	imgResp, err := client.Get(imageURL)
	if err != nil {
		s.log.Warn("failed to fetch AllSky image at %s: %v", imageURL, err)
		return false
	}
	defer imgResp.Body.Close()
	if imgResp.StatusCode != http.StatusOK {
		s.log.Warn("AllSky image fetch returned %s", imgResp.Status)
		return false
	}

	ct := imgResp.Header.Get("Content-Type")
	if ct == "" {
		ct = "image/jpeg"
	}
	w.Header().Set("Content-Type", ct)
	io.Copy(w, imgResp.Body)
	return true
}

var imgSrcPattern = regexp.MustCompile(`(?i)<img[^>]+src=["']([^"']+)["']`)

// extractImageSrc returns the first <img> src on the page, resolved
// against the page URL when relative.
func extractImageSrc(html, pageURL string) string {
	m := imgSrcPattern.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	src := m[1]

	base, err := url.Parse(pageURL)
	if err != nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
