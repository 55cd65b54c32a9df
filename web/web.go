package web

import (
	"errors"
	"fmt"
	"github.com/XANi/esphome-tcs34725/project"
	"github.com/XANi/esphome-tcs34725/registry"
	"github.com/XANi/esphome-tcs34725/schema"
	"github.com/XANi/esphome-tcs34725/store"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"
)

type WebBackend struct {
	l        *zap.SugaredLogger
	al       *zap.SugaredLogger
	r        *gin.Engine
	cfg      *Config
	compiler *project.Compiler
	reg      *registry.Registry
	store    *store.Store
}

type Config struct {
	Logger       *zap.SugaredLogger `yaml:"-"`
	AccessLogger *zap.SugaredLogger `yaml:"-"`
	ListenAddr   string             `yaml:"listen_addr"`
	Compiler     *project.Compiler  `yaml:"-"`
	Registry     *registry.Registry `yaml:"-"`
	// Store is optional, without it builds are not recorded
	Store *store.Store `yaml:"-"`
}

// maximum accepted configuration size
const maxConfigSize = 1 << 20

func New(cfg Config, webFS fs.FS) (backend *WebBackend, err error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("missing logger")
	}
	if cfg.Compiler == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("compiler and registry are required")
	}
	w := WebBackend{
		l:        cfg.Logger,
		al:       cfg.Logger,
		cfg:      &cfg,
		compiler: cfg.Compiler,
		reg:      cfg.Registry,
		store:    cfg.Store,
	}
	if cfg.AccessLogger != nil {
		w.al = cfg.AccessLogger
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	w.r = r
	r.Use(ginzap.Ginzap(w.al.Desugar(), time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(w.al.Desugar(), true))
	t, err := template.ParseFS(webFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("error loading templates: %w", err)
	}
	r.SetHTMLTemplate(t)
	static, err := fs.Sub(webFS, "static")
	if err != nil {
		return nil, fmt.Errorf("error loading static files: %w", err)
	}
	r.StaticFS("/s/", http.FS(static))
	r.GET("/", w.Index)
	api := r.Group("/api/v1")
	api.POST("/validate", w.Validate)
	api.POST("/compile", w.Compile)
	api.GET("/builds", w.Builds)
	api.GET("/builds/:id", w.Build)
	api.GET("/readings/:node", w.Readings)
	api.GET("/actions", w.Actions)
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
	return &w, nil
}

// Handler exposes router for embedding and tests
func (b *WebBackend) Handler() http.Handler {
	return b.r
}

func (b *WebBackend) Run() error {
	b.l.Infof("listening on %s", b.cfg.ListenAddr)
	return b.r.Run(b.cfg.ListenAddr)
}

type failure struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

func failures(err error) []failure {
	var out []failure
	for _, f := range schema.Failures(err) {
		out = append(out, failure{Path: f.PathString(), Message: f.Message})
	}
	if len(out) == 0 {
		out = append(out, failure{Message: err.Error()})
	}
	return out
}

func readConfig(c *gin.Context) ([]byte, bool) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxConfigSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	if len(data) > maxConfigSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "configuration too large"})
		return nil, false
	}
	return data, true
}

func (b *WebBackend) Index(c *gin.Context) {
	var builds []store.Build
	if b.store != nil {
		var err error
		builds, err = b.store.ListBuilds(20)
		if err != nil {
			b.l.Errorf("error listing builds: %s", err)
		}
	}
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"title":   "tcs34725 builds",
		"builds":  builds,
		"actions": b.reg.Actions(),
	})
}

func (b *WebBackend) Validate(c *gin.Context) {
	data, ok := readConfig(c)
	if !ok {
		return
	}
	p, err := b.compiler.Validate(data)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"valid": false, "errors": failures(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"name":     p.Name,
		"platform": p.Platform,
		"entities": p.Entities(),
	})
}

func (b *WebBackend) Compile(c *gin.Context) {
	data, ok := readConfig(c)
	if !ok {
		return
	}
	res, err := b.compiler.Compile(data)
	build := store.Build{Hash: project.Hash(data), Config: string(data), Success: err == nil}
	if err != nil {
		build.Errors = err.Error()
	} else {
		build.Node = res.Name
		build.Platform = res.Platform
		build.Program = res.Program.String()
	}
	if b.store != nil {
		if serr := b.store.SaveBuild(&build); serr != nil {
			b.l.Errorf("error saving build: %s", serr)
		}
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"id": build.ID, "errors": failures(err)})
		return
	}
	if c.Query("format") == "cpp" {
		c.String(http.StatusOK, build.Program)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"id":         build.ID,
		"name":       res.Name,
		"program":    build.Program,
		"directives": res.Program.Directives(),
	})
}

func (b *WebBackend) Builds(c *gin.Context) {
	if b.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "build history disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	builds, err := b.store.ListBuilds(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, builds)
}

func (b *WebBackend) Build(c *gin.Context) {
	if b.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "build history disabled"})
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	build, err := b.store.GetBuild(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, build)
}

func (b *WebBackend) Readings(c *gin.Context) {
	if b.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reading history disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}
	readings, err := b.store.Readings(c.Param("node"), c.Query("sensor"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, readings)
}

type action struct {
	Name  string `json:"name"`
	Class string `json:"class"`
}

func (b *WebBackend) Actions(c *gin.Context) {
	var out []action
	for _, name := range b.reg.Actions() {
		a, _ := b.reg.Action(name)
		out = append(out, action{Name: a.Name, Class: a.Class.String()})
	}
	c.JSON(http.StatusOK, out)
}
