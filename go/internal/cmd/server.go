package main

import (
	"net/http"

	"github.com/mcdev12/ghostwars/go/internal/debugserver"
	"github.com/mcdev12/ghostwars/go/internal/gamemap"
)

// setupServer serves m with the process-wide diagnostics log set up by
// setupServices.
func setupServer(services *Services, m *gamemap.Map) *http.Server {
	handler := debugserver.NewHandler(m, nil)
	return debugserver.New(services.Config.DebugAddr, handler)
}
