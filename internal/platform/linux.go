package platform

import "github.com/goplus/depbuild/internal/config"

// Linux builds position independent static libraries with Ninja.
type Linux struct{}

var _ Provider = (*Linux)(nil)

func NewLinux() *Linux { return &Linux{} }

func (*Linux) Name() string                                  { return config.Linux }
func (*Linux) Generator() string                             { return "Ninja" }
func (*Linux) ArchitectureArg(*config.Config) string         { return "" }
func (*Linux) CMakeOptions(*config.Config) map[string]string { return map[string]string{} }
func (*Linux) CFlags(*config.Config) string                  { return "-fPIC" }
func (*Linux) CXXFlags(*config.Config) string                { return "-fPIC" }
func (*Linux) Capabilities() Capabilities                    { return Capabilities{} }
func (*Linux) Reset()                                        {}
