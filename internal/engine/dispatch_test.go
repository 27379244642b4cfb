package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/materialscodegraph/materialscodegraph/internal/registry"
)

func TestBuildCommandLocal(t *testing.T) {
	tests := []struct {
		name string
		cfg  registry.LocalBackend
		want string
	}{
		{
			name: "default template",
			cfg:  registry.LocalBackend{Executable: "lammps"},
			want: "lammps input.txt",
		},
		{
			name: "declared template",
			cfg: registry.LocalBackend{
				Executable:      "vasp",
				CommandTemplate: "mpirun -np 4 {executable} < {input_file} > out.log",
			},
			want: "mpirun -np 4 vasp < input.txt > out.log",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := buildCommand(registry.ExecutionConfig{
				Mode:  registry.BackendLocal,
				Local: tt.cfg,
			}, "input.txt")
			require.NoError(t, err)
			assert.Equal(t, tt.want, cmd)
		})
	}
}

func TestBuildCommandDocker(t *testing.T) {
	cmd, env, err := buildCommand(registry.ExecutionConfig{
		Mode: registry.BackendDocker,
		Docker: registry.DockerBackend{
			Image:       "lammps/lammps:stable",
			Command:     "lmp -in {input_file}",
			Environment: map[string]string{"OMP_NUM_THREADS": "2"},
		},
	}, "input.txt")
	require.NoError(t, err)

	assert.Equal(t, `docker run --rm -v "$PWD":/work -w /work lammps/lammps:stable lmp -in input.txt`, cmd)
	assert.Equal(t, "2", env["OMP_NUM_THREADS"])
}

func TestBuildCommandDockerDefaultsToInputFile(t *testing.T) {
	cmd, _, err := buildCommand(registry.ExecutionConfig{
		Mode:   registry.BackendDocker,
		Docker: registry.DockerBackend{Image: "calc:latest"},
	}, "input.txt")
	require.NoError(t, err)
	assert.Equal(t, `docker run --rm -v "$PWD":/work -w /work calc:latest input.txt`, cmd)
}

func TestBuildCommandHPC(t *testing.T) {
	cmd, _, err := buildCommand(registry.ExecutionConfig{
		Mode: registry.BackendHPC,
		HPC:  registry.HPCBackend{Executable: "vasp"},
	}, "input.txt")
	require.NoError(t, err)
	assert.Equal(t, "sbatch --wait input.txt", cmd)

	cmd, _, err = buildCommand(registry.ExecutionConfig{
		Mode: registry.BackendHPC,
		HPC: registry.HPCBackend{
			Executable:     "vasp",
			SubmitTemplate: "qsub -l walltime=1:00:00 {executable} {input_file}",
		},
	}, "input.txt")
	require.NoError(t, err)
	assert.Equal(t, "qsub -l walltime=1:00:00 vasp input.txt", cmd)
}

func TestBuildCommandUnknownMode(t *testing.T) {
	_, _, err := buildCommand(registry.ExecutionConfig{Mode: "cloud"}, "input.txt")
	require.Error(t, err)
}

func TestEffectiveTimeout(t *testing.T) {
	method := registry.Method{Timeout: 2 * time.Minute}
	cfg := registry.ExecutionConfig{Timeout: 5 * time.Minute}

	assert.Equal(t, 2*time.Minute, effectiveTimeout(method, cfg, time.Second))
	assert.Equal(t, 5*time.Minute, effectiveTimeout(registry.Method{}, cfg, time.Second))
	assert.Equal(t, time.Second, effectiveTimeout(registry.Method{}, registry.ExecutionConfig{}, time.Second))
	assert.Equal(t, DefaultTimeout, effectiveTimeout(registry.Method{}, registry.ExecutionConfig{}, 0))
}

func TestMergeEnv(t *testing.T) {
	ambient := []string{"PATH=/usr/bin", "HOME=/root", "OMP_NUM_THREADS=8"}

	merged := mergeEnv(ambient, map[string]string{"OMP_NUM_THREADS": "2", "SCRATCH": "/tmp"})

	assert.Contains(t, merged, "PATH=/usr/bin")
	assert.Contains(t, merged, "OMP_NUM_THREADS=2")
	assert.Contains(t, merged, "SCRATCH=/tmp")
	assert.NotContains(t, merged, "OMP_NUM_THREADS=8")

	// No declared variables returns the ambient slice untouched.
	assert.Equal(t, ambient, mergeEnv(ambient, nil))
}
