package features

// SampleMeasurements is the demonstration panel the predictor tool scores.
// It covers the blood panel and the cardiac exam features.
func SampleMeasurements() Measurements {
	return Measurements{
		"Age":            45,
		"F.History":      0,
		"Diabetes":       0,
		"BP":             90.6,
		"Thrombolysis":   0,
		"BGR":            150,
		"B.Urea":         20,
		"S.Cr":           1.0,
		"S.Sodium":       140,
		"S.Potassium":    4.0,
		"S.Chloride":     100,
		"C.P.K":          200,
		"CK.MB":          50,
		"ESR":            10,
		"WBC":            8000,
		"RBC":            4.5,
		"Hemoglobin":     14,
		"P.C.V":          40,
		"M.C.V":          90,
		"M.C.H":          30,
		"M.C.H.C":        33,
		"PLATELET_COUNT": 250000,
		"NEUTROPHIL":     60,
		"LYMPHO":         30,
		"MONOCYTE":       5,
		"EOSINO":         2,
		"cp":             1,
		"trestbps":       120,
		"chol":           200,
		"fbs":            0,
		"restecg":        1,
		"thalach":        150,
		"exang":          0,
		"oldpeak":        1.0,
		"slope":          2,
		"ca":             0,
		"thal":           3,
	}
}

// MinimalSample is a ten-value panel that leaves most schema features to the
// fill value.
func MinimalSample() Measurements {
	return Measurements{
		"Age":            65,
		"C.P.K":          300,
		"BGR":            150,
		"PLATELET_COUNT": 250000,
		"Hemoglobin":     14,
		"RBC":            4.5,
		"B.Urea":         20,
		"WBC":            8000,
		"CK.MB":          50,
		"NEUTROPHIL":     60,
	}
}

// DemoColumns is the column order of the bundled demonstration model. A
// loaded model artifact supplies its own order.
func DemoColumns() []string {
	return []string{
		"Age", "F.History", "Diabetes", "BP", "Thrombolysis", "BGR", "B.Urea",
		"S.Cr", "S.Sodium", "S.Potassium", "S.Chloride", "C.P.K", "CK.MB", "ESR",
		"WBC", "RBC", "Hemoglobin", "P.C.V", "M.C.V", "M.C.H", "M.C.H.C",
		"PLATELET_COUNT", "NEUTROPHIL", "LYMPHO", "MONOCYTE", "EOSINO",
		"cp", "trestbps", "chol", "fbs", "restecg", "thalach", "exang",
		"oldpeak", "slope", "ca", "thal",
	}
}
