package utils

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Parses a Netscape formatted cookies.txt file, keeping only rows whose
// domain matches the target domain (exact match, or suffix match for
// ".domain" rows).
func ParseNetscapeCookieFile(filePath, targetDomain string) ([]*http.Cookie, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf(
			"error %d: failed to open cookie file at %s, more info => %v",
			OS_ERROR,
			filePath,
			err,
		)
	}
	defer f.Close()

	var cookies []*http.Cookie
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// domain, flag, path, secure, expiration, name, value
		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			return nil, fmt.Errorf(
				"error %d: invalid cookie row in %s: %q",
				INPUT_ERROR,
				filePath,
				line,
			)
		}

		domain := fields[0]
		if !cookieDomainMatches(domain, targetDomain) {
			continue
		}

		cookie := &http.Cookie{
			Domain:   domain,
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			Name:     fields[5],
			Value:    fields[6],
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		if expiry, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expiry > 0 {
			cookie.Expires = time.Unix(expiry, 0)
		}
		cookies = append(cookies, cookie)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf(
			"error %d: failed to read cookie file at %s, more info => %v",
			OS_ERROR,
			filePath,
			err,
		)
	}
	return cookies, nil
}

func cookieDomainMatches(cookieDomain, targetDomain string) bool {
	if cookieDomain == targetDomain {
		return true
	}
	if strings.HasPrefix(cookieDomain, ".") {
		return targetDomain == cookieDomain[1:] ||
			strings.HasSuffix(targetDomain, cookieDomain)
	}
	return false
}

// Parses a raw "name=value; name2=value2" cookie header string.
func ParseRawCookieString(raw, targetDomain string) []*http.Cookie {
	var cookies []*http.Cookie
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:     strings.TrimSpace(name),
			Value:    strings.TrimSpace(value),
			Domain:   targetDomain,
			Path:     "/",
			Expires:  time.Now().Add(365 * 24 * time.Hour),
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return cookies
}

// Resolves cookies for the target domain. First hit wins:
//  1. a user supplied cookies.txt path,
//  2. <appdata>/<target_domain>_cookies.txt,
//  3. <appdata>/cookies.txt,
//  4. a raw "name=value; ..." string.
func ResolveCookies(userFilePath, rawString, targetDomain string) ([]*http.Cookie, error) {
	if userFilePath != "" {
		return ParseNetscapeCookieFile(userFilePath, targetDomain)
	}

	domainFile := filepath.Join(APP_PATH, targetDomain+"_cookies.txt")
	if PathExists(domainFile) {
		return ParseNetscapeCookieFile(domainFile, targetDomain)
	}

	defaultFile := filepath.Join(APP_PATH, "cookies.txt")
	if PathExists(defaultFile) {
		return ParseNetscapeCookieFile(defaultFile, targetDomain)
	}

	if rawString != "" {
		return ParseRawCookieString(rawString, targetDomain), nil
	}
	return nil, nil
}
