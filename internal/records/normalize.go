package records

import (
	"encoding/json"
	"fmt"
	"time"
)

// The remote store holds documents written by several schema revisions
// of the PWA client. Everything crossing the document boundary goes
// through exactly one normalization step here, producing a canonical
// typed record; nothing downstream patches fields ad hoc.

const dateLayout = "2006-01-02"

// ClientFromDocument builds a canonical Client from a raw document.
func ClientFromDocument(id string, doc map[string]any) (Client, error) {
	normalized := normalizeTimestamps(doc)
	var client Client
	if err := decodeDocument(normalized, &client); err != nil {
		return Client{}, fmt.Errorf("client document %s: %w", id, err)
	}
	client.ID = id
	if client.Generators == nil {
		client.Generators = []Generator{}
	}
	return client, nil
}

// OrderFromDocument builds a canonical ServiceOrder from a raw
// document, upgrading legacy single-generator revisions on the way.
func OrderFromDocument(id string, doc map[string]any) (ServiceOrder, error) {
	normalized := normalizeTimestamps(doc)
	migrateLegacyOrder(normalized)

	var order ServiceOrder
	if err := decodeDocument(normalized, &order); err != nil {
		return ServiceOrder{}, fmt.Errorf("service order document %s: %w", id, err)
	}
	order.ID = id
	if order.Visits == nil {
		order.Visits = []GeneratorVisit{}
	}
	for i := range order.Visits {
		if order.Visits[i].MaintenanceType == "" {
			order.Visits[i].MaintenanceType = MaintenancePreventive
		}
		if order.Visits[i].Verifications == nil {
			order.Visits[i].Verifications = []Verification{}
		}
	}
	return order, nil
}

// UserFromDocument builds a canonical User from a raw document. Legacy
// plaintext credential fields are discarded rather than carried over.
func UserFromDocument(id string, doc map[string]any) (User, error) {
	normalized := normalizeTimestamps(doc)
	delete(normalized, "senha")
	var user User
	if err := decodeDocument(normalized, &user); err != nil {
		return User{}, fmt.Errorf("user document %s: %w", id, err)
	}
	user.ID = id
	return user, nil
}

// RTIFromDocument builds a canonical RTI from a raw document.
func RTIFromDocument(id string, doc map[string]any) (RTI, error) {
	normalized := normalizeTimestamps(doc)
	var report RTI
	if err := decodeDocument(normalized, &report); err != nil {
		return RTI{}, fmt.Errorf("rti document %s: %w", id, err)
	}
	report.ID = id
	return report, nil
}

// migrateLegacyOrder rewrites pre-multi-generator orders in place.
// Early revisions stored a single gerador_id plus per-order maintenance
// fields at the top level; later revisions moved them into the
// geradores list and renamed observacoes to observacoes_gerais.
func migrateLegacyOrder(doc map[string]any) {
	if _, hasVisits := doc["geradores"].([]any); !hasVisits {
		if legacyGenerator, ok := doc["gerador_id"]; ok {
			visit := map[string]any{
				"gerador_id":      legacyGenerator,
				"tipo_manutencao": doc["tipo_manutencao"],
				"verificacoes":    doc["verificacoes"],
				"observacoes":     doc["observacoes"],
			}
			if runtime, ok := doc["tempo_funcionamento"]; ok {
				visit["tempo_funcionamento"] = runtime
			}
			doc["geradores"] = []any{visit}
			delete(doc, "gerador_id")
			delete(doc, "tipo_manutencao")
			delete(doc, "verificacoes")
			delete(doc, "tempo_funcionamento")
			delete(doc, "observacoes")
		} else {
			doc["geradores"] = []any{}
		}
	}

	if notes, ok := doc["observacoes"]; ok {
		if _, hasGeneral := doc["observacoes_gerais"]; !hasGeneral {
			doc["observacoes_gerais"] = notes
		}
		delete(doc, "observacoes")
	}
}

// normalizeTimestamps returns a copy of the document with time values
// flattened to YYYY-MM-DD strings, the format every client revision
// agrees on for date fields.
func normalizeTimestamps(doc map[string]any) map[string]any {
	normalized := make(map[string]any, len(doc))
	for key, value := range doc {
		switch typed := value.(type) {
		case time.Time:
			normalized[key] = typed.Format(dateLayout)
		default:
			normalized[key] = value
		}
	}
	return normalized
}

// ToDocument flattens a canonical record into the field map sent on a
// remote create. The identifier never travels in the document body; the
// remote store assigns its own.
func ToDocument(record any) (map[string]any, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, err
	}
	delete(doc, "id")
	return doc, nil
}

func decodeDocument(doc map[string]any, target any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, target)
}
