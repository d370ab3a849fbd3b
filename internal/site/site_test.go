package site

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/stageflow/internal/config"
)

func TestFromConfig_Defaults(t *testing.T) {
	s := FromConfig(&config.SiteConfig{Name: "local"})

	assert.Equal(t, "local", s.Name)
	assert.Equal(t, 1, s.NodeCount)
	assert.Equal(t, 1, s.CoresPerNode)
	assert.Equal(t, DefaultMPICommand, s.MPICommand)
	assert.Equal(t, 1, s.TotalCores())
}

func TestTotalCores(t *testing.T) {
	s := FromConfig(&config.SiteConfig{Name: "cluster", Nodes: 4, CoresPerNode: 16})
	assert.Equal(t, 64, s.TotalCores())
}

func TestCommand_SerialStage(t *testing.T) {
	s := FromConfig(&config.SiteConfig{Name: "local"})
	shape := config.Shape{NProcess: 1, Threads: 1, Nodes: 1}

	cmd := s.Command("python3 -m textflow.tokenize tokenize", shape)
	assert.Equal(t, "OMP_NUM_THREADS=1 python3 -m textflow.tokenize tokenize", cmd)
}

func TestCommand_Threads(t *testing.T) {
	s := FromConfig(&config.SiteConfig{Name: "local"})
	shape := config.Shape{NProcess: 1, Threads: 4, Nodes: 1}

	cmd := s.Command("python3 -m textflow.count count_words", shape)
	assert.Equal(t, "OMP_NUM_THREADS=4 python3 -m textflow.count count_words", cmd)
}

func TestCommand_MPI(t *testing.T) {
	t.Run("default mpi command", func(t *testing.T) {
		s := FromConfig(&config.SiteConfig{Name: "local"})
		shape := config.Shape{NProcess: 4, Threads: 2, Nodes: 1}

		cmd := s.Command("python3 -m textflow.count count_words", shape)
		assert.Equal(t, "OMP_NUM_THREADS=2 mpirun -n 4 python3 -m textflow.count count_words --mpi", cmd)
	})

	t.Run("site-specific mpi command", func(t *testing.T) {
		s := FromConfig(&config.SiteConfig{Name: "cluster", MPICommand: "srun -n"})
		shape := config.Shape{NProcess: 8, Threads: 1, Nodes: 2}

		cmd := s.Command("python3 -m textflow.count count_words", shape)
		assert.Equal(t, "OMP_NUM_THREADS=1 srun -n 8 python3 -m textflow.count count_words --mpi", cmd)
	})
}

func TestCommand_Container(t *testing.T) {
	t.Run("with volume", func(t *testing.T) {
		s := FromConfig(&config.SiteConfig{Name: "local", Image: "textflow:latest", Volume: "/data:/data"})
		shape := config.Shape{NProcess: 1, Threads: 2, Nodes: 1}

		cmd := s.Command("python3 -m textflow.report report", shape)
		assert.Equal(t,
			"docker run --env OMP_NUM_THREADS=2 -v /data:/data --rm textflow:latest python3 -m textflow.report report",
			cmd)
	})

	t.Run("without volume", func(t *testing.T) {
		s := FromConfig(&config.SiteConfig{Name: "local", Image: "textflow:latest"})
		shape := config.Shape{NProcess: 2, Threads: 1, Nodes: 1}

		cmd := s.Command("python3 -m textflow.count count_words", shape)
		assert.Equal(t,
			"docker run --env OMP_NUM_THREADS=1 --rm textflow:latest mpirun -n 2 python3 -m textflow.count count_words --mpi",
			cmd)
	})
}
