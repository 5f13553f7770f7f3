package document

import (
	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// Structural shape versions, oldest first. Legacy documents predate the
// version field, so their version is inferred from which keys they carry.
var (
	BaseShapeVersion     = version.MustParse("0.0.0")
	MetadataShapeVersion = version.MustParse("0.1.0")
	TemplateShapeVersion = version.MustParse("0.2.0")
	RecoveryShapeVersion = version.MustParse("1.0.0")
)

// DetectionSource names the rule that produced a detected version.
type DetectionSource string

const (
	SourceVersionField       DetectionSource = "version-field"
	SourceSchemaVersionField DetectionSource = "schema-version-field"
	SourceRecoveryShape      DetectionSource = "recovery-shape"
	SourceTemplateShape      DetectionSource = "template-shape"
	SourceMetadataShape      DetectionSource = "metadata-shape"
	SourceWorkflowShape      DetectionSource = "workflow-shape"
	SourceDefault            DetectionSource = "default"
)

// Detection is the result of inspecting a document.
type Detection struct {
	Version version.Version
	Source  DetectionSource
}

// Detect infers the schema version of doc.
func Detect(doc *Document) (version.Version, error) {
	d, err := Inspect(doc)
	if err != nil {
		return version.Version{}, err
	}
	return d.Version, nil
}

// DetectBytes parses data and infers its schema version.
func DetectBytes(data []byte) (version.Version, error) {
	doc, err := Parse(data)
	if err != nil {
		return version.Version{}, err
	}
	return Detect(doc)
}

// Inspect infers the schema version of doc and reports which rule matched.
// Explicit fields win; otherwise the most evolved matching shape is chosen.
func Inspect(doc *Document) (Detection, error) {
	if doc == nil {
		return Detection{}, &InvalidDocumentError{Reason: "document is nil"}
	}

	if doc.Version != "" {
		v, err := version.ParseLenient(doc.Version)
		if err != nil {
			return Detection{}, err
		}
		return Detection{Version: v, Source: SourceVersionField}, nil
	}
	if doc.SchemaVersion != "" {
		v, err := version.ParseLenient(doc.SchemaVersion)
		if err != nil {
			return Detection{}, err
		}
		return Detection{Version: v, Source: SourceSchemaVersionField}, nil
	}

	if doc.Has(KeyTemplates) && doc.Has(KeyVariables) {
		if doc.Has(KeyRecovery) || doc.Has(KeyConflicts) {
			return Detection{Version: RecoveryShapeVersion, Source: SourceRecoveryShape}, nil
		}
		return Detection{Version: TemplateShapeVersion, Source: SourceTemplateShape}, nil
	}

	if doc.Metadata != nil && (doc.Metadata.Created != "" || doc.Metadata.Modified != "") {
		return Detection{Version: MetadataShapeVersion, Source: SourceMetadataShape}, nil
	}

	if doc.Has(KeyChecklists) || doc.Has(KeyActiveInstance) ||
		doc.Has(KeyCompletedSteps) || doc.Has(KeyCurrentStepID) {
		return Detection{Version: BaseShapeVersion, Source: SourceWorkflowShape}, nil
	}

	return Detection{Version: BaseShapeVersion, Source: SourceDefault}, nil
}
