// Package tiltguard is the backend for a trading discipline tool. Users
// time-lock the Risk Settings page of their trading platform until the end
// of the day, week or month, and gate an installation guide behind
// cooldown and access windows.
//
// Layout:
//   - auth: accounts, bcrypt passwords, JWT sessions and impersonation.
//   - blocking: the Risk Settings block window.
//   - guideaccess: the guide cooldown and access state machine.
//   - repository: database setup, migrations and the repository manager.
//   - api: the fiber HTTP surface used by the extension and the admin UI.
//   - client: a Go client and a status watcher that polls like the extension.
//
// The SQL migrations for every supported dialect are embedded in this
// package, see DialectMigrations.
package tiltguard
