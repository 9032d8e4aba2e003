// Package logger builds configured log/slog loggers with domain attribute
// helpers and context-driven attribute injection.
//
// The factory produces JSON output at info level by default (production) and
// text output at debug level in development. Attribute helpers (AccountID,
// EventID, Reason, ...) keep log keys consistent across components so access
// decisions and webhook processing can be correlated in aggregation systems:
//
//	log := logger.New(logger.WithProduction("entitled"))
//	log.InfoContext(ctx, "access denied",
//	    logger.AccountID(accountID),
//	    logger.Reason(verdict.Reason),
//	)
package logger
