// Package furrow is the Composition Root for the furrow seeder.
//
// It connects the bulk writer (pkg/core) with the storage adapters
// (pkg/adapters) and the dataset loader (pkg/dataset).
//
// furrow writes fixed lists of flat records into named collections of a document
// store. Every write replaces the document at its ID, so running a dataset twice
// leaves the store in the same state. Writes are sequential and never retried:
// the first failure stops the run and earlier writes stay.
//
// Adapters:
//
//   - **firestore**: Cloud Firestore, authenticated with a service account key file.
//   - **mongo**: MongoDB, one document per ID with `_id` set to the ID.
//   - **postgres**: one jsonb row per (collection, id).
//   - **fs**: one JSON or YAML file per document, optionally committed to git.
//   - **memory**: in-process, for tests and dry runs.
//
// Usage:
//
//	batches, err := furrow.Load(nil, "")
//	report, err := furrow.Run(ctx, "my-project",
//		batches,
//		furrow.WithCredentialsFile("serviceAccountKey.json"),
//		furrow.WithLogger(logger),
//	)
package furrow
