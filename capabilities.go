package sqlspec

// Capabilities is the per-dialect capability record consulted by the
// Statement Pipeline and the Event Backends. Adapters are described by data rather than by
// subclassing: a Session is always accompanied by the Capabilities of the
// dialect it talks to.
type Capabilities struct {
	PreferredStyle       ParameterStyle
	SupportsReturning    bool
	SupportsSkipLocked   bool
	SupportsTxnDDL       bool
	SupportsListenNotify bool
	Features             map[Feature]bool
}

// Supports reports whether the capability record advertises the given
// feature.
func (c Capabilities) Supports(f Feature) bool {
	return c.Features[f]
}

// CapabilitiesFor returns the registered Capabilities for a dialect,
// falling back to the conservative ANSI profile for unregistered dialects.
func CapabilitiesFor(d Dialect) Capabilities {
	if c, ok := capabilityRegistry[d]; ok {
		return c
	}

	return capabilityRegistry[DialectANSI]
}

var capabilityRegistry = map[Dialect]Capabilities{
	DialectPostgres: {
		PreferredStyle:       StyleNumeric,
		SupportsReturning:    true,
		SupportsSkipLocked:   true,
		SupportsTxnDDL:       true,
		SupportsListenNotify: true,
		Features: map[Feature]bool{
			FeatureReturning:               true,
			FeatureCTE:                     true,
			FeatureRecursiveCTE:            true,
			FeatureWindowFunctions:         true,
			FeatureUpsert:                  true,
			FeatureForUpdateSkipLocked:     true,
			FeatureTransactionalDDL:        true,
			FeatureListenNotify:            true,
			FeatureTruncateRestartIdentity: true,
		},
	},
	DialectMySQL: {
		PreferredStyle:       StyleQMark,
		SupportsReturning:    false,
		SupportsSkipLocked:   true,
		SupportsTxnDDL:       false,
		SupportsListenNotify: false,
		Features: map[Feature]bool{
			FeatureReturning:               false,
			FeatureCTE:                     true,
			FeatureRecursiveCTE:            true,
			FeatureWindowFunctions:         true,
			FeatureUpsert:                  true,
			FeatureForUpdateSkipLocked:     true,
			FeatureTransactionalDDL:        false,
			FeatureListenNotify:            false,
			FeatureTruncateRestartIdentity: false,
		},
	},
	DialectSQLite: {
		PreferredStyle:       StyleQMark,
		SupportsReturning:    true,
		SupportsSkipLocked:   false,
		SupportsTxnDDL:       true,
		SupportsListenNotify: false,
		Features: map[Feature]bool{
			FeatureReturning:               true,
			FeatureCTE:                     true,
			FeatureRecursiveCTE:            true,
			FeatureWindowFunctions:         true,
			FeatureUpsert:                  true,
			FeatureForUpdateSkipLocked:     false,
			FeatureTransactionalDDL:        true,
			FeatureListenNotify:            false,
			FeatureTruncateRestartIdentity: false,
		},
	},
	DialectOracle: {
		PreferredStyle:       StyleNamedColon,
		SupportsReturning:    true,
		SupportsSkipLocked:   true,
		SupportsTxnDDL:       false,
		SupportsListenNotify: false,
		Features: map[Feature]bool{
			FeatureReturning:           true,
			FeatureCTE:                 true,
			FeatureRecursiveCTE:        true,
			FeatureWindowFunctions:     true,
			FeatureUpsert:              true,
			FeatureForUpdateSkipLocked: true,
			FeatureTransactionalDDL:    false,
		},
	},
	DialectDuckDB: {
		PreferredStyle:     StyleNumeric,
		SupportsReturning:  true,
		SupportsSkipLocked: false,
		SupportsTxnDDL:     true,
		Features: map[Feature]bool{
			FeatureReturning:       true,
			FeatureCTE:             true,
			FeatureRecursiveCTE:    true,
			FeatureWindowFunctions: true,
			FeatureUpsert:          true,
			FeatureTransactionalDDL: true,
		},
	},
	DialectSpanner: {
		PreferredStyle:     StyleNamedAt,
		SupportsReturning:  false,
		SupportsSkipLocked: false,
		SupportsTxnDDL:     false,
		Features: map[Feature]bool{
			FeatureCTE:             true,
			FeatureWindowFunctions: true,
		},
	},
	DialectBigQuery: {
		PreferredStyle:     StyleNamedAt,
		SupportsReturning:  false,
		SupportsSkipLocked: false,
		SupportsTxnDDL:     false,
		Features: map[Feature]bool{
			FeatureCTE:             true,
			FeatureWindowFunctions: true,
		},
	},
	DialectANSI: {
		PreferredStyle: StyleQMark,
		Features:       map[Feature]bool{FeatureCTE: true},
	},
}
