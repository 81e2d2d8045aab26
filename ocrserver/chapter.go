package ocrserver

import (
	"net/url"
	"regexp"
)

var chapterPath = regexp.MustCompile(`/manga/\d+/chapter/\d+`)

// ChapterBaseURL derives the page API prefix of the chapter that pageURL
// belongs to, e.g.
//
//	https://host/manga/7/chapter/3  ->  https://host/api/v1/manga/7/chapter/3/page/
func ChapterBaseURL(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	m := chapterPath.FindString(u.Path)
	if m == "" || u.Host == "" {
		return "", ErrNotChapter
	}
	return u.Scheme + "://" + u.Host + "/api/v1" + m + "/page/", nil
}
