package admin

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Router holds the admin key spaces the HTTP surface queries: one for
// discovered entities (dds/, node/), one for routes (route/).
type Router struct {
	Entities *Space
	Routes   *Space
	Version  string
}

// NewHTTPHandler builds the admin introspection HTTP surface: health,
// version, and a wildcard query endpoint over both key spaces.
func NewHTTPHandler(r Router) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(chimw.Compress(5))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(),
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]string{"status": "healthy", "service": "zenoh-bridge-ros2"})
	})
	router.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, map[string]string{"version": r.Version, "service": "zenoh-bridge-ros2"})
	})

	router.Get("/admin/dds/*", r.handleQuery("dds", r.Entities))
	router.Get("/admin/node/*", r.handleQuery("node", r.Entities))
	router.Get("/admin/route/*", r.handleQuery("route", r.Routes))

	return router
}

func (r Router) handleQuery(prefix string, space *Space) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		selector := strings.TrimPrefix(req.URL.Path, "/admin/")
		replies, err := TreatQuery(space, prefix, selector)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out := make(map[string]json.RawMessage, len(replies))
		for _, reply := range replies {
			cleaned, err := RemoveNullQoSValues(reply.Value)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			out[reply.Key] = cleaned
		}
		writeJSON(w, out)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func corsOrigins() []string {
	if v := os.Getenv("ZENOH_BRIDGE_ROS2_ADMIN_CORS_ORIGINS"); v != "" {
		var out []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				out = append(out, o)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{"*"}
}
