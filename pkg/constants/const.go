package constants

const (
	APIPrefix = "api/v1"

	HealthzPath = "/v1/healthz"
	MetricsPath = "/metrics"

	// Upload roles, also the multipart field names.
	RoleThumbnail = "thumbnail"
	RoleAssets    = "assets"
	RoleCodeZip   = "codeZip"

	// LegacyRoleDemoZip is the field name older clients send for the demo archive.
	LegacyRoleDemoZip = "demoZip"
)
