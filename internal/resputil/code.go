package resputil

type ErrorCode int

const (
	OK ErrorCode = 0

	// General
	InvalidRequest ErrorCode = 40001

	// Upload pipeline
	InvalidArchive       ErrorCode = 40010
	MissingEntryPoint    ErrorCode = 40011
	UnsupportedThumbnail ErrorCode = 40012
	PayloadTooLarge      ErrorCode = 41301

	// Path escapes a project sandbox
	PathTraversal ErrorCode = 40301

	ProjectNotFound ErrorCode = 40401
	FileNotFound    ErrorCode = 40402

	PipelineTimeout ErrorCode = 50401

	ServiceError ErrorCode = 50001

	// Indicates laziness of the developer
	// Frontend will directly print the message without any translation
	NotSpecified ErrorCode = 99999
)
