package runinfo

// Sanitize removes every row whose project accession differs from project.
//
// Runinfo exports occasionally list runs of sibling projects. The distinct
// foreign project accessions are returned in first-seen order, each once
// regardless of how many rows carried it; nil means nothing was removed.
// After Sanitize every remaining run's Project equals project.
func (m *Manifest) Sanitize(project string) []string {
	var foreign []string
	seen := make(map[string]bool)
	for _, run := range m.Runs {
		if run.Project == project || seen[run.Project] {
			continue
		}
		seen[run.Project] = true
		foreign = append(foreign, run.Project)
	}
	if len(foreign) == 0 {
		return nil
	}

	rows := m.Rows[:0]
	runs := m.Runs[:0]
	for i, run := range m.Runs {
		if seen[run.Project] {
			continue
		}
		rows = append(rows, m.Rows[i])
		runs = append(runs, run)
	}
	m.Rows = rows
	m.Runs = runs

	return foreign
}
