package httpapi

import "net/http"

// Routes builds the ServeMux for the HTTP API, wrapping every handler in
// the credentialed CORS policy for the given web-app origin. The realtime
// upgrade handler is registered alongside so both surfaces share one
// listener.
func Routes(g *Gateway, allowedOrigin string, realtime http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", g.Health)
	mux.HandleFunc("POST /newRoom", g.CreateRoom)
	mux.HandleFunc("GET /getRooms", g.ListRooms)
	mux.HandleFunc("GET /verifyCookie", g.VerifyCookie)
	mux.HandleFunc("POST /logIn", g.LogIn)
	mux.HandleFunc("POST /register", g.Register)
	mux.HandleFunc("POST /logOut", g.LogOut)

	if realtime != nil {
		mux.Handle("GET /ws", realtime)
	}

	wrapped := http.NewServeMux()
	wrapped.Handle("/", corsMiddleware(allowedOrigin, mux))
	return wrapped
}

// corsMiddleware allows credentialed requests from the configured web-app
// origin and answers preflight requests.
func corsMiddleware(allowedOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin == allowedOrigin {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
