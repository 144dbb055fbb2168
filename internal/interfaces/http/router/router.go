package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// Mountable is a set of routes that can be attached under a gin group
type Mountable interface {
	Mount(parent *gin.RouterGroup) []string
}

// Router attaches route groups under /api/<version>. Middleware added with
// Use applies to those groups only; routes put on the engine directly, like
// the health probes, skip it.
type Router struct {
	engine     *gin.Engine
	version    string
	middleware []gin.HandlerFunc
	groups     []Mountable
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" path segment
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.version = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

func (r *Router) Register(groups ...Mountable) *Router {
	r.groups = append(r.groups, groups...)
	return r
}

// Setup mounts every registered group and returns the mounted routes as
// "METHOD /full/path"
func (r *Router) Setup() []string {
	api := r.engine.Group("/api/"+r.version, r.middleware...)
	var mounted []string
	for _, g := range r.groups {
		mounted = append(mounted, g.Mount(api)...)
	}
	return mounted
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// RouteGroup is a tree of routes under a common prefix, e.g. /batches.
// Group middleware also runs for nested groups.
type RouteGroup struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*RouteGroup
}

func NewRouteGroup(prefix string) *RouteGroup {
	return &RouteGroup{prefix: prefix}
}

func (g *RouteGroup) Use(middleware ...gin.HandlerFunc) *RouteGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

func (g *RouteGroup) GET(relative string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodGet, relative, handlers)
}

func (g *RouteGroup) POST(relative string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodPost, relative, handlers)
}

func (g *RouteGroup) PUT(relative string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.add(http.MethodPut, relative, handlers)
}

func (g *RouteGroup) add(method, relative string, handlers []gin.HandlerFunc) *RouteGroup {
	g.routes = append(g.routes, route{method: method, path: relative, handlers: handlers})
	return g
}

// Group nests a child group and returns it
func (g *RouteGroup) Group(prefix string) *RouteGroup {
	child := NewRouteGroup(prefix)
	g.children = append(g.children, child)
	return child
}

// Mount implements Mountable
func (g *RouteGroup) Mount(parent *gin.RouterGroup) []string {
	rg := parent.Group(g.prefix, g.middleware...)
	mounted := make([]string, 0, len(g.routes))
	for _, rt := range g.routes {
		rg.Handle(rt.method, rt.path, rt.handlers...)
		mounted = append(mounted, rt.method+" "+joinPath(rg.BasePath(), rt.path))
	}
	for _, child := range g.children {
		mounted = append(mounted, child.Mount(rg)...)
	}
	return mounted
}

func joinPath(base, relative string) string {
	if relative == "" {
		return base
	}
	return path.Join(base, relative)
}
