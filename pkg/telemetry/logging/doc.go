// Package logging builds the engine's *slog.Logger.
//
// Every component takes a plain *slog.Logger; this package only decides the
// handler behind it. The handler adds execution context to each record and,
// when redaction is enabled, masks personal data in attributes:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", RedactPII: true})
//	ctx = logging.WithExecutionID(ctx, "exec-123")
//	logger.InfoContext(ctx, "screening complete", "name", "Jane Roe", "dob", "1990-01-01")
//	// {"msg":"screening complete","name":"J***","dob":"1***","execution_id":"exec-123"}
package logging
