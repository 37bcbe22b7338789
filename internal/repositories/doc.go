// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [AllowlistRepository] : users permitted to sign in, with per-module permissions
//   - [ReservationRepository] : bookings plus the per-day summary view
//   - [DayNoteRepository] : one free-text note per calendar day
//   - [TaskRepository] : kitchen and maintenance board tasks, including idempotent routine generation
//   - [RoutineRepository] : weekly task templates
//   - [IngredientRepository], [SubRecipeRepository], [DishRepository] : costing catalogue with item lists
//   - [PosRepository] : till products, dish links and daily sales
//
// Sequence numbers provide stable, human-readable ordering (e.g., task #42, dish #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
//
// Missing rows are reported with [shared.ErrNotFound], unique violations with [shared.ErrConflict].
package repositories
