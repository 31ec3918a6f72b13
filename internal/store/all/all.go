// Package all importa todos los adapters para auto-registro.
// Importar este paquete desde el binario (o el wiring) para habilitar los drivers.
//
// Uso:
//
//	import _ "github.com/dropDatabas3/laneeditor/internal/store/all"
package all

import (
	_ "github.com/dropDatabas3/laneeditor/internal/store/pg"
	_ "github.com/dropDatabas3/laneeditor/internal/store/sqlite"
)
