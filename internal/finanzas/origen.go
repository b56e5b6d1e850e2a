package finanzas

import "github.com/google/uuid"

// OriginKind tags which source table a gasto was generated from.
type OriginKind string

const (
	OrigenUnico            OriginKind = "unico"
	OrigenRecurrente       OriginKind = "recurrente"
	OrigenDebitoAutomatico OriginKind = "debito_automatico"
	OrigenCompra           OriginKind = "compra"
)

// Valida reports whether the tag names one of the four source kinds.
func (k OriginKind) Valida() bool {
	switch k {
	case OrigenUnico, OrigenRecurrente, OrigenDebitoAutomatico, OrigenCompra:
		return true
	}
	return false
}

// OriginRef is the polymorphic pointer from a Gasto back to the source row
// that produced it. The kind decides which repository the ID resolves in.
type OriginRef struct {
	Kind OriginKind
	ID   uuid.UUID
}
