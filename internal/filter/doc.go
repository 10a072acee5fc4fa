// Package filter keeps the merged-table rows that belong to the target taxon
// and removes duplicate records.
package filter
