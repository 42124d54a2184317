// Package lookupconst resolves "${const:...}" variables against
// registered program constants.
//
// It is not registered on configurations by default: resolution is
// reflective and depends on what the host process registers, so hosts
// opt in explicitly:
//
//	consts := lookupconst.New()
//	consts.Register("app.Defaults", appDefaults)
//	cfg.Interpolator().Register("const", consts)
package lookupconst
