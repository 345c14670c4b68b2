package echoapi

import (
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/labstack/echo/v4"
)

// registerSPA serves the single-page app: existing files as-is, index.html for client-side routes.
func registerSPA(app *echo.Echo, publicDir string) {
	serve := func(ctx echo.Context) error {
		name, err := url.PathUnescape(ctx.Param("*"))
		if err != nil {
			return echo.ErrNotFound
		}
		name = path.Clean("/" + name)

		if name != "/" {
			fp := filepath.Join(publicDir, filepath.FromSlash(name))
			if fi, err := os.Stat(fp); err == nil && !fi.IsDir() {
				return ctx.File(fp)
			}
			// missing assets are not client-side routes
			if path.Ext(name) != "" {
				return errFileNotFound
			}
		}
		return ctx.File(filepath.Join(publicDir, "index.html"))
	}

	app.GET("/*", serve)
	app.HEAD("/*", serve)
}
