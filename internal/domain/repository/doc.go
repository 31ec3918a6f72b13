// Package repository define los contratos de persistencia del editor.
//
// Las interfaces representan el contrato que necesitan los services,
// independientes del almacenamiento subyacente (PostgreSQL o SQLite).
// Las implementaciones viven en internal/store/pg e internal/store/sqlite.
//
//	┌─────────────────────────────────────────────┐
//	│        Services (auth, changeset, history)  │
//	└─────────────────────────────────────────────┘
//	                      │
//	                      ▼
//	┌─────────────────────────────────────────────┐
//	│   domain/repository (TokenStore, Ledger)    │
//	└─────────────────────────────────────────────┘
//	              │                 │
//	              ▼                 ▼
//	      ┌─────────────┐   ┌─────────────┐
//	      │  store/pg   │   │ store/sqlite│
//	      └─────────────┘   └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Los callers sólo ven structs tipados, nunca filas
//   - Errores de dominio están en errors.go
package repository
