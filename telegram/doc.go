// Package telegram implements a minimal Telegram Bot API client.
//
// Only the two methods the archiver needs are exposed: GetMe for startup
// validation and GetUpdates for long-poll ingestion. API payloads are
// decoded into thin wire types and converted to domain types with ToMessage
// and ToChat; everything else the Bot API offers is ignored.
package telegram
