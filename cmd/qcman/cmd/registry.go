package cmd

import (
	"github.com/umdcms/qcmanager/internal/procedure"
	"github.com/umdcms/qcmanager/internal/procedure/confdump"
	"github.com/umdcms/qcmanager/internal/procedure/envcheck"
	"github.com/umdcms/qcmanager/internal/procedure/pedestal"
)

// DefaultRegistry is the global registry containing all built-in procedures.
var DefaultRegistry *procedure.Registry

func init() {
	DefaultRegistry = procedure.NewRegistry()
	RegisterDefaultProcedures(DefaultRegistry)
}

// RegisterDefaultProcedures registers all built-in procedures with the
// given registry. This is useful for testing when you want a fresh
// registry with built-in procedures.
func RegisterDefaultProcedures(r *procedure.Registry) {
	pedestal.Register(r)
	confdump.Register(r)
	envcheck.Register(r)
}
