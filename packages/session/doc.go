// Package session persists hitdesk's workspace settings and run history in
// a SQLite database so a restarted backend resumes where it left off.
package session
