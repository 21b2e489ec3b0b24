package dashboardserver

import (
	"embed"
	"io/fs"
)

//go:embed all:assets
var assetsFS embed.FS

// GetAssets returns the embedded template and stylesheet
func GetAssets() fs.FS {
	assets, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("failed to create assets sub-filesystem: " + err.Error())
	}
	return assets
}
