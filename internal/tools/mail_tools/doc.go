// Package mail_tools provides MCP tools for working with a Microsoft Graph
// mailbox.
//
// The package registers tools for:
//   - Listing and reading messages (mail_list_messages, mail_get_message)
//   - Sending messages with optional attachments (mail_send_message)
//   - Moving and archiving messages (mail_move_message, mail_archive_message)
//   - Listing attachments and extracting PDF text (mail_list_attachments,
//     mail_get_attachment, mail_get_attachment_text)
//   - Folder management (mail_list_folders, mail_create_folder)
//   - Connectivity diagnostics (graph_test_connection)
//
// Write operations are not registered when the server runs read-only.
// Handlers return tool error results for expected failures (missing
// arguments, unauthenticated state, Graph rejections) rather than protocol
// errors, so agents can read and act on the message.
package mail_tools
