package web

import (
	"bytes"
	"html/template"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"

	"songshelf/src/handler/api"
	"songshelf/src/handler/webui"
	"songshelf/src/player"
	"songshelf/src/util"
)

const staticDir = "static"

var minifier = newMinifier()

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)
	return m
}

type asset struct {
	contentType string
	content     []byte
}

type webUI struct {
	build, version string
	urlRoot        string
	files          fs.FS
	assets         map[string]asset
	assetNames     map[string][]string
	modTime        time.Time
	pageTemplate   *template.Template
	ctl            *player.Controller
}

// New creates the root router serving the web page, its static assets, the
// API under /data and the Prometheus metrics.
func New(build, version, urlRoot string, ctl *player.Controller) (chi.Router, error) {
	files := webui.Files(build)
	web := webUI{
		build:   build,
		version: version,
		urlRoot: urlRoot,
		files:   files,
		modTime: time.Now(),
		ctl:     ctl,
	}
	var err error
	if web.assets, err = loadAssets(files, build == "release"); err != nil {
		return nil, err
	}
	web.assetNames = getStaticAssets(web.assets)
	if web.pageTemplate, err = mkTemplate(files); err != nil {
		return nil, err
	}

	service := chi.NewRouter()
	service.Use(util.LogHandler)
	service.Use(middleware.Compress(5))
	service.Get("/static/*", web.serveAsset)
	service.Get("/", web.page)
	service.Method("GET", "/metrics", promhttp.Handler())
	service.Route("/data", func(r chi.Router) {
		api.InitRouter(r, ctl)
	})

	return service, nil
}

func loadAssets(files fs.FS, minified bool) (map[string]asset, error) {
	assets := map[string]asset{}
	err := fs.WalkDir(files, staticDir, func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := fs.ReadFile(files, name)
		if err != nil {
			return err
		}
		contentType := contentTypeOf(name)
		if minified {
			if m, err := minifier.Bytes(contentType, content); err == nil {
				content = m
			} else if err != minify.ErrNotExist {
				log.WithField("asset", name).Warnf("Could not minify: %v", err)
			}
		}
		urlPath := strings.TrimPrefix(name, staticDir+"/")
		assets[urlPath] = asset{contentType: contentType, content: content}
		return nil
	})
	return assets, err
}

func contentTypeOf(name string) string {
	switch path.Ext(name) {
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	}
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return strings.SplitN(t, ";", 2)[0]
	}
	return "application/octet-stream"
}

func getStaticAssets(assets map[string]asset) map[string][]string {
	static := map[string][]string{
		"js":  {},
		"css": {},
	}
	for name := range assets {
		switch path.Ext(name) {
		case ".css":
			static["css"] = append(static["css"], name)
		case ".js":
			static["js"] = append(static["js"], name)
		}
	}
	for _, a := range static {
		sort.Strings(a)
	}
	return static
}

func mkTemplate(files fs.FS) (*template.Template, error) {
	return template.New("page.html").ParseFS(files, "page.html")
}

func (web *webUI) getTemplate() (*template.Template, error) {
	if web.build == "debug" {
		return mkTemplate(web.files)
	}
	return web.pageTemplate, nil
}

func (web *webUI) page(w http.ResponseWriter, r *http.Request) {
	tmpl, err := web.getTemplate()
	if err != nil {
		log.Errorf("Could not parse page template: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	params := map[string]interface{}{
		"urlroot": web.urlRoot,
		"version": web.version,
		"assets":  web.assetNames,
		"time":    time.Now(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, params); err != nil {
		log.Errorf("Could not render page: %v", err)
	}
}

func (web *webUI) serveAsset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	if web.build == "debug" {
		assets, err := loadAssets(web.files, false)
		if err != nil {
			log.Errorf("Could not load assets: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		web.serveContent(w, r, name, assets[name])
		return
	}
	web.serveContent(w, r, name, web.assets[name])
}

func (web *webUI) serveContent(w http.ResponseWriter, r *http.Request, name string, a asset) {
	if a.content == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	http.ServeContent(w, r, name, web.modTime, bytes.NewReader(a.content))
}
