// Package fetch downloads per-accession record tables from the ENA portal
// filereport endpoint into the artifact store.
//
// Client issues one HTTP request per accession. Fetcher fans requests out over
// a bounded errgroup and stores each response as <ACCESSION>.tsv. By default
// the first failure cancels the remaining downloads; with AllowPartial set,
// failures are reported as warnings and the run continues with the
// accessions that succeeded.
package fetch
