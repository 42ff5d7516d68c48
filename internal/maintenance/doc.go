// Package maintenance schedules the background upkeep of the library with
// cron specs: enforcing the thumbnail cache budget and dropping albums whose
// folder or archive has vanished. Standard five-field specs and descriptors
// such as "@every 10m" or "@daily" are accepted.
package maintenance
