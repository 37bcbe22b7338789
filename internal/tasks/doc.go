// Package tasks runs the multi-step operations of the service with real-time progress reporting.
//
// # Core Operations
//
// [Engine] provides three operations:
//
//  1. [Engine.GenerateWeek] : weekly routine generation
//     - Loads the active routines of a board area
//     - Creates one task per routine with a window inside the requested week
//     - Skips routines that already produced a task for that week, even a deleted one
//
//  2. [Engine.ImportSales] : POS sales import
//     - Parses a till CSV export (English or Spanish headers, decimal comma, DD/MM/YYYY dates)
//     - Creates unknown products and upserts one sale per product and day
//     - Reports invalid lines with their line numbers
//
//  3. [Engine.AutoLink] : product to dish matching
//     - Links unlinked products whose accent-folded name equals exactly one dish name
//     - Never changes manual links
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
//
// # Implementation
//
// [Engine] depends on small store interfaces ([RoutineStore], [TaskStore], [SalesStore], [DishStore])
// satisfied by the repositories package.
package tasks
