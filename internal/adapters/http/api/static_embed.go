package api

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var apiStaticFS embed.FS

// liveFS exposes a sub-filesystem rooted at static/.
var liveFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(apiStaticFS, "static")
	if err != nil {
		return apiStaticFS
	}
	return sub
}()
