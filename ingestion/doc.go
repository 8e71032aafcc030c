// Package ingestion loads segmented policy documents into a clause store.
//
// The Pipeline type manages the ingestion workflow for a policy document:
//   - Validating the document and assigning content ids to unnamed sub-chunks
//   - Persisting the policy version, special clauses, clauses, sub-chunks and
//     cross references
//   - Embedding every sub-chunk in batches on a bounded worker pool
//
// Ingest returns only after every batch has been embedded and stored, so a
// store is fully searchable once ingestion completes.
package ingestion
