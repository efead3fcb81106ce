package telegram

import (
	"net/url"
	"sort"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/exg1o/telegram-bots-hub/internal/designer"
)

// InputFiles turns a message node's media list into sendable files,
// ordered by position. Relative paths are designer-hosted uploads and
// get joined onto serviceURL.
func InputFiles(serviceURL string, media []designer.MessageMedia) []telego.InputFile {
	sorted := make([]designer.MessageMedia, len(media))
	copy(sorted, media)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	files := make([]telego.InputFile, 0, len(sorted))
	for _, item := range sorted {
		rawURL := ""
		switch {
		case item.URL != nil && *item.URL != "":
			rawURL = *item.URL
		case item.FromURL != nil && *item.FromURL != "":
			rawURL = *item.FromURL
		default:
			continue
		}

		if strings.HasPrefix(rawURL, "/") {
			if unescaped, err := url.PathUnescape(rawURL); err == nil {
				rawURL = unescaped
			}
			rawURL = strings.TrimSuffix(serviceURL, "/") + rawURL
		}
		files = append(files, tu.FileFromURL(rawURL))
	}
	return files
}
