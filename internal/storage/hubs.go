package storage

// Hub is a module ranked by how many places depend on it
type Hub struct {
	Module     *Module `json:"module"`
	Dependents int     `json:"dependents"` // distinct modules importing it
	References int     `json:"references"` // import/require occurrences
	RiskLevel  string  `json:"riskLevel"`  // low, medium, high, critical
}

// TopDependedOn returns the modules with the most distinct dependents
func (db *DB) TopDependedOn(limit int) ([]*Hub, error) {
	rows, err := db.conn.Query(`
		SELECT `+moduleColumns+`,
		       COUNT(DISTINCT e.from_id) AS dependents,
		       COUNT(e.id) AS refs
		FROM nodes n
		JOIN edges e ON e.to_id = n.id
		GROUP BY n.id
		ORDER BY dependents DESC, refs DESC, n.id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hubs := make([]*Hub, 0)
	for rows.Next() {
		var m Module
		var h Hub
		if err := rows.Scan(&m.ID, &m.Name, &m.Kind, &m.IsFile, &h.Dependents, &h.References); err != nil {
			return nil, err
		}
		h.Module = &m
		h.RiskLevel = CalculateRiskLevel(h.Dependents)
		hubs = append(hubs, &h)
	}
	return hubs, rows.Err()
}

// CalculateRiskLevel determines how risky it is to change a module from its direct dependents
func CalculateRiskLevel(dependents int) string {
	if dependents >= 50 {
		return "critical"
	}
	if dependents >= 20 {
		return "high"
	}
	if dependents >= 5 {
		return "medium"
	}
	return "low"
}
