package inputfile

import (
	"strings"

	"strakmachine/namelist"
)

// builtinTemplate is used when no template file is configured. Everything
// not generated per airfoil (search strategy, xfoil options, curvature
// control) is taken from here unchanged.
const builtinTemplate = `
&optimization_options
  search_type = 'global'
  global_search = 'particle_swarm'
  seed_airfoil = 'from_file'
  shape_functions = 'hicks-henne'
  nfunctions_top = 5
  nfunctions_bot = 5
  initial_perturb = 0.0025
  min_bump_width = 0.1
  show_details = .true.
/

&operating_conditions
  re_default_as_resqrtcl = .true.
  dynamic_weighting = .true.
  use_flap = .false.
  noppoint = 0
/

&particle_swarm_options
  pso_pop = 30
  pso_tol = 0.00015
  pso_maxit = 350
  pso_convergence_profile = 'exhaustive'
/

&xfoil_run_options
  ncrit = 9.0
  xtript = 1.0
  xtripb = 1.0
  viscous_mode = .true.
  silent_mode = .true.
  bl_maxit = 50
  vaccel = 0.005
  fix_unconverged = .true.
  reinitialize = .false.
/

&curvature
  check_curvature = .true.
  auto_curvature = .true.
  max_curv_reverse_top = 0
  max_curv_reverse_bot = 1
/

&geometry_targets
  ngeo_targets = 0
/
`

// Template loads the optimizer template from path, or the built-in one when
// path is empty.
func Template(path string) (*namelist.Document, error) {
	if path == "" {
		return namelist.Read(strings.NewReader(builtinTemplate))
	}
	return namelist.ReadFile(path)
}
