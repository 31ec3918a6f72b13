// Package osm implementa el cliente del API versionado de OpenStreetMap (0.6):
// lectura de ways, apertura/cierre de changesets y actualización de ways.
package osm

// Way es una vía tal como la devuelve el API. No se cachea: se vuelve a pedir
// inmediatamente antes de cada actualización para tener la última versión.
type Way struct {
	ID      int64
	Version int64
	Nodes   []int64
	Tags    map[string]string
}

// TagDelta son los tags a agregar o sobrescribir sobre un Way.
type TagDelta map[string]string

// MergeTags devuelve un mapa nuevo con la unión de old y delta.
// En colisión gana delta; las claves no tocadas se preservan.
func MergeTags(old map[string]string, delta TagDelta) map[string]string {
	out := make(map[string]string, len(old)+len(delta))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}

// CopyTags devuelve una copia superficial de tags (nunca nil).
func CopyTags(tags map[string]string) map[string]string {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}

// Clone devuelve una copia profunda del Way.
func (w *Way) Clone() *Way {
	if w == nil {
		return nil
	}
	nodes := make([]int64, len(w.Nodes))
	copy(nodes, w.Nodes)
	return &Way{ID: w.ID, Version: w.Version, Nodes: nodes, Tags: CopyTags(w.Tags)}
}
