// Package site describes the resource envelope a pipeline runs inside and
// decorates stage commands with the site's MPI and container conventions.
package site

import (
	"fmt"
	"os"
	"strings"

	"github.com/vk/stageflow/internal/config"
)

// DefaultMPICommand is the prefix used to start multi-process stages when
// the site does not override it.
const DefaultMPICommand = "mpirun -n"

// Site represents execution at a specific location: how many nodes and
// cores are available, how MPI jobs are started, and whether stages run
// inside a container.
type Site struct {
	Name         string
	NodeCount    int
	CoresPerNode int
	MPICommand   string
	Image        string
	Volume       string
}

// FromConfig builds a Site from its configuration block. Defaults for
// omitted fields have already been applied by the loader; this guards the
// programmatic path too.
func FromConfig(cfg *config.SiteConfig) *Site {
	s := &Site{
		Name:         cfg.Name,
		NodeCount:    cfg.Nodes,
		CoresPerNode: cfg.CoresPerNode,
		MPICommand:   cfg.MPICommand,
		Image:        cfg.Image,
		Volume:       cfg.Volume,
	}
	if s.NodeCount < 1 {
		s.NodeCount = 1
	}
	if s.CoresPerNode < 1 {
		s.CoresPerNode = 1
	}
	if s.MPICommand == "" {
		s.MPICommand = DefaultMPICommand
	}
	return s
}

// TotalCores returns the number of cores in the whole envelope.
func (s *Site) TotalCores() int {
	return s.NodeCount * s.CoresPerNode
}

// Hostname names the node pool; node IDs are derived from it.
func (s *Site) Hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return s.Name
	}
	return host
}

// Command generates the complete command line for a stage with the given
// resource shape: the thread-count environment variable, the MPI prefix
// and --mpi flag for multi-process stages, and the container invocation
// when the site runs stages inside an image.
func (s *Site) Command(core string, shape config.Shape) string {
	mpiPrefix := ""
	mpiFlag := ""
	if shape.NProcess > 1 {
		mpiPrefix = fmt.Sprintf("%s %d", s.MPICommand, shape.NProcess)
		mpiFlag = "--mpi"
	}

	if s.Image != "" {
		volumeFlag := ""
		if s.Volume != "" {
			volumeFlag = fmt.Sprintf("-v %s", s.Volume)
		}
		return join(
			"docker run",
			fmt.Sprintf("--env OMP_NUM_THREADS=%d", shape.Threads),
			volumeFlag,
			"--rm", s.Image,
			mpiPrefix, core, mpiFlag,
		)
	}

	return join(
		fmt.Sprintf("OMP_NUM_THREADS=%d", shape.Threads),
		mpiPrefix, core, mpiFlag,
	)
}

// join assembles command fragments, dropping empty ones so optional parts
// never leave double spaces behind.
func join(parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}
