package server

import (
	"embed"
	"html/template"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/deepin-community/fprintd/internal/auth"
	"github.com/deepin-community/fprintd/internal/device"
	"github.com/deepin-community/fprintd/internal/events"
	"github.com/deepin-community/fprintd/internal/usermgr"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Options wires an App to the running daemon.
type Options struct {
	Registry *device.Registry
	Bus      *events.Bus
	Accounts *usermgr.Accounts
	Auth     *auth.Authenticator
	// Secret signs identity tokens.
	Secret   []byte
	TokenTTL time.Duration
	// DefaultUID identifies callers that present no token.
	DefaultUID int

	LoginRate  rate.Limit
	LoginBurst int
}

type App struct {
	reg        *device.Registry
	bus        *events.Bus
	accounts   *usermgr.Accounts
	auth       *auth.Authenticator
	secret     []byte
	ttl        time.Duration
	defaultUID int
	page       *template.Template
	methods    methodTable

	limitMu    sync.Mutex
	limiters   map[string]*rate.Limiter
	loginRate  rate.Limit
	loginBurst int
}

func NewApp(opts Options) (*App, error) {
	page, err := template.New("status.html").ParseFS(templatesFS, "templates/status.html")
	if err != nil {
		return nil, err
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus()
	}
	a := &App{
		reg:        opts.Registry,
		bus:        opts.Bus,
		accounts:   opts.Accounts,
		auth:       opts.Auth,
		secret:     opts.Secret,
		ttl:        opts.TokenTTL,
		defaultUID: opts.DefaultUID,
		page:       page,
		limiters:   map[string]*rate.Limiter{},
		loginRate:  opts.LoginRate,
		loginBurst: opts.LoginBurst,
	}
	a.methods = a.buildMethods()
	return a, nil
}

func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/call", a.handleCall)
	mux.HandleFunc("/api/events", a.handleEvents)
	mux.HandleFunc("/api/login", a.handleLogin)
	mux.HandleFunc("/api/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{\"ok\":true}\n"))
	})
	mux.HandleFunc("/", a.handleStatus)

	return a.withAuthContext(mux)
}

// allowLogin applies the per-address login throttle.
func (a *App) allowLogin(ip string) bool {
	a.limitMu.Lock()
	defer a.limitMu.Unlock()
	l := a.limiters[ip]
	if l == nil {
		l = rate.NewLimiter(a.loginRate, a.loginBurst)
		a.limiters[ip] = l
	}
	return l.Allow()
}
