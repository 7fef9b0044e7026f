package mysql

const insertLookupSQL = `
INSERT INTO aqi_lookups
  (city, outcome, http_status, upstream_status, duration_ms, created_at)
VALUES
  (?, ?, ?, ?, ?, ?)
`

// Newest first; aligns with idx_aqi_lookups_created (created_at, id).
const recentLookupsSQL = `
SELECT id, city, outcome, http_status, upstream_status, duration_ms, created_at
FROM aqi_lookups
ORDER BY created_at DESC, id DESC
LIMIT ?
`
