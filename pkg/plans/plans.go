// Package plans declares the built-in install plans. They mirror the manual setup steps
// from the project README: the dev plan prepares a working Hdl21 development environment,
// the pdk plan builds and installs open_pdks.
package plans

import (
	"fmt"

	"github.com/ThomasPluck/Hdl21/pkg/config"
	"github.com/ThomasPluck/Hdl21/pkg/installsys"
)

// Dev returns the plan that sets up the Hdl21 development environment.
//
// It clones Vlsir next to the Hdl21 checkout, installs the Python packages in editable
// mode (the VLSIR bindings, VlsirTools, Hdl21 itself with its dev extras and the Ihp130
// PDK package) and finishes by installing the pre-commit hooks. The plan starts at the
// root of the Hdl21 checkout and assumes the checkout directory is named Hdl21, just like
// a fresh clone.
func Dev(cfg *config.Config) *installsys.Plan {
	pip := cfg.Pip.Executable

	return &installsys.Plan{
		Name: "dev",
		Desc: "Install the Hdl21 development environment",
		Steps: []*installsys.Step{
			{
				Name: "clone Vlsir",
				Dir:  "..",
				Cmd:  []string{"git", "clone", "--branch", cfg.Vlsir.Branch, cfg.Vlsir.URL},
			},
			{
				Name: "install bindings/python",
				Dir:  "Vlsir/bindings/python",
				Cmd:  []string{pip, "install", "-e", "."},
			},
			{
				Name: "install VlsirTools",
				Dir:  "../../VlsirTools",
				Cmd:  []string{pip, "install", "-e", "."},
			},
			{
				Name: "install Hdl21",
				Dir:  "../../Hdl21",
				Cmd:  []string{pip, "install", "-e", ".[dev]"},
			},
			{
				Name: "install Ihp130 PDK",
				Dir:  "pdks/Ihp130",
				Cmd:  []string{pip, "install", "-e", "."},
			},
			{
				Name: "install commit hooks",
				Dir:  "../..",
				Cmd:  []string{"pre-commit", "install"},
			},
		},
	}
}

// PDK returns the plan that builds and installs open_pdks.
//
// The plan starts in the directory the PDK should be built under, clones open_pdks there
// and runs the usual configure, make, make install sequence inside the fresh clone.
func PDK(cfg *config.Config) *installsys.Plan {
	configure := []string{"./configure", fmt.Sprintf("--enable-%s-pdk", cfg.PDK.Family)}
	if cfg.PDK.Prefix != "" {
		configure = append(configure, "--prefix="+cfg.PDK.Prefix)
	}

	return &installsys.Plan{
		Name: "pdk",
		Desc: fmt.Sprintf("Build and install the %s PDK from open_pdks", cfg.PDK.Family),
		Steps: []*installsys.Step{
			{
				Name: "clone open_pdks",
				Dir:  ".",
				Cmd:  []string{"git", "clone", "--branch", cfg.PDK.Branch, cfg.PDK.URL},
			},
			{
				Name: "configure",
				Dir:  "open_pdks",
				Cmd:  configure,
			},
			{
				Name: "build",
				Dir:  ".",
				Cmd:  []string{"make"},
			},
			{
				Name: "install",
				Dir:  ".",
				Cmd:  []string{"make", "install"},
			},
		},
	}
}

// Builtin returns all plans that ship with hdlsetup.
func Builtin(cfg *config.Config) installsys.PlanList {
	dev := Dev(cfg)
	pdk := PDK(cfg)

	return installsys.PlanList{
		dev.Name: dev,
		pdk.Name: pdk,
	}
}
