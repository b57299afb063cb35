package gateway

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/shopauth/internal/common"
	"github.com/dmitrijs2005/shopauth/internal/logging"
	"github.com/dmitrijs2005/shopauth/internal/resource/guard"
)

// newProxy forwards to upstream. Identity headers from the client are
// always dropped and replaced by the ones derived from the admitted
// principal, so the upstream can trust them.
func newProxy(upstream *url.URL, l logging.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(upstream)
			pr.SetXForwarded()

			pr.Out.Header.Del(common.UserIDHeaderName)
			pr.Out.Header.Del(common.UserNameHeaderName)
			pr.Out.Header.Del(common.UserRolesHeaderName)

			p, ok := guard.PrincipalFromContext(pr.In.Context())
			if !ok {
				return
			}
			pr.Out.Header.Set(common.UserIDHeaderName, p.Subject())
			pr.Out.Header.Set(common.UserNameHeaderName, p.Name())
			pr.Out.Header.Set(common.UserRolesHeaderName, strings.Join(p.Roles(), ","))
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			l.Error(r.Context(), "Upstream request failed", "path", r.URL.Path, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"message":"upstream unavailable"}` + "\n"))
		},
	}
}
