package serve

import (
	"embed"
	"io/fs"
	"net/http"
	"os"

	assetfs "github.com/elazarl/go-bindata-assetfs"
)

//go:embed web
var webFiles embed.FS

func assetDir(name string) ([]string, error) {
	entries, err := webFiles.ReadDir(name)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func assetInfo(name string) (os.FileInfo, error) {
	return fs.Stat(webFiles, name)
}

// NewWebHandler serves the bundled web frontend.
func NewWebHandler() http.Handler {
	return http.FileServer(&assetfs.AssetFS{
		Asset:     webFiles.ReadFile,
		AssetDir:  assetDir,
		AssetInfo: assetInfo,
		Prefix:    "web",
	})
}
