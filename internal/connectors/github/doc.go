// Package github implements the code-hosting activity source.
//
// Commit, issue, and pull request history is fetched from the GitHub
// GraphQL API through the generic paginator in internal/connectors/graphql
// and mapped to domain activity records. The REST client (go-github) is
// used only for credential validation and default-branch resolution;
// history itself always goes through GraphQL cursors so interrupted
// fetches can resume.
//
// Fetch strategy per activity kind:
//
//   - commit: commit history on the default branch, constrained
//     server-side with since=watermark. Cursors are only valid for
//     identical connection arguments and since moves with the
//     watermark, so commit cursors live within a single run only.
//   - issue-opened, pull-request-opened: creation-ordered ascending
//     pagination with the cursor persisted across runs; creation order
//     is append-only, so a stored cursor never skips items.
//   - issue-closed, pull-request-merged: update-ordered descending
//     pagination with early stop once items fall behind the watermark.
//     Update order reshuffles as items change, so cursors for these
//     kinds are never persisted; the watermark window bounds each run.
package github
