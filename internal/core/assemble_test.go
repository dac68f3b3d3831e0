package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleEmptyTextReturnsPlaceholder(t *testing.T) {
	entries := Assemble("")
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].Name)
	assert.NotEmpty(t, entries[0].Instructions)
}

func TestAssembleGarbledTextReturnsPlaceholder(t *testing.T) {
	entries := Assemble("the patient should rest and come back if symptoms persist. no further notes.")
	require.Len(t, entries, 1)
	assert.Equal(t, "Prescription under clinician review", entries[0].Name)
}

func TestAssembleParsesBulletedEntries(t *testing.T) {
	text := "Rx:\n" +
		"- Amoxicillin 500 mg - take one capsule three times daily for 7 days\n" +
		"- Ibuprofen 200 mg - take two tablets as needed for pain\n"
	entries := Assemble(text)
	require.Len(t, entries, 2)
	assert.Equal(t, "Amoxicillin", entries[0].Name)
	assert.Equal(t, "500 mg", entries[0].Quantity)
	assert.Equal(t, "take one capsule three times daily for 7 days", entries[0].Instructions)
	assert.Equal(t, "Ibuprofen", entries[1].Name)
}

func TestAssembleParsesNumberedEntries(t *testing.T) {
	text := "1. Cetirizine 10 mg: one tablet at bedtime\n2) Saline nasal spray - 2 puffs per nostril twice daily"
	entries := Assemble(text)
	require.Len(t, entries, 2)
	assert.Equal(t, "Cetirizine", entries[0].Name)
	assert.Equal(t, "10 mg", entries[0].Quantity)
	assert.Equal(t, "one tablet at bedtime", entries[0].Instructions)
	assert.Equal(t, "Saline nasal spray", entries[1].Name)
	assert.Equal(t, "2 puffs", entries[1].Quantity)
}

func TestAssembleDosageWithoutBullet(t *testing.T) {
	entries := Assemble("Paracetamol 500 mg - one tablet every six hours")
	require.Len(t, entries, 1)
	assert.Equal(t, "Paracetamol", entries[0].Name)
	assert.Equal(t, "500 mg", entries[0].Quantity)
}

func TestAssembleSkipsHeadings(t *testing.T) {
	text := "Medications:\n- Metformin 500 mg - one tablet twice daily with meals"
	entries := Assemble(text)
	require.Len(t, entries, 1)
	assert.Equal(t, "Metformin", entries[0].Name)
}
