// Package models defines domain entities and persistence interfaces for the venue management service.
//
// Entities are grouped by module:
//
//   - Admin: [AllowedUser] with a [Role] and per-module [Permissions]
//   - Reservations: [Reservation] with a service [Outcome], [DayNote] and the [DaySummary] read model
//   - Boards: [Task] with its status machine and [Routine] weekly templates
//   - Cheffing: [Ingredient], [SubRecipe], [Dish] and their [Item] lines, tagged with [Tags]
//   - POS: [PosProduct] and [PosSale] rows imported from the till
//
// All persistent entities embed [Meta] (ID, sequence, timestamps, soft delete) and implement [Model].
// Validation uses go-playground/validator struct tags; failures wrap [shared.ErrInvalidInput].
package models
