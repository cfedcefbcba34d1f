package ontology

const testOBO = `format-version: 1.2
data-version: releases/2024-10-01
ontology: go
default-namespace: gene_ontology

[Term]
id: GO:0008150
name: biological_process
namespace: biological_process

[Term]
id: GO:0009987
name: cellular process
namespace: biological_process
is_a: GO:0008150 ! biological_process

[Term]
id: GO:0007049
name: cell cycle
namespace: biological_process
alt_id: GO:0000003
is_a: GO:0009987 ! cellular process

[Term]
id: GO:0003674
name: molecular_function
namespace: molecular_function

[Term]
id: GO:0005575
name: cellular_component
namespace: cellular_component

[Term]
id: GO:0005634
name: nucleus
namespace: cellular_component
is_a: GO:0005575 ! cellular_component

[Term]
id: GO:0005654
name: nucleoplasm
namespace: cellular_component
is_a: GO:0005575 ! cellular_component
relationship: part_of GO:0005634 ! nucleus

[Term]
id: GO:0000001
name: mitochondrion inheritance
namespace: biological_process
is_obsolete: true

[Typedef]
id: part_of
name: part of
is_transitive: true
`

const testGAF = "!gaf-version: 2.2\n" +
	"!generated-by: PomBase\n" +
	"PomBase\tG1\tg1\t\tGO:0007049\tPMID:1\tIMP\t\tP\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n" +
	"PomBase\tG2\tg2\t\tGO:0000003\tPMID:1\tIMP\t\tP\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n" +
	"PomBase\tG1\tg1\t\tGO:0005634\tPMID:1\tIDA\t\tC\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n" +
	"PomBase\tG1\tg1\t\tGO:0005634\tPMID:2\tIDA\t\tC\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n" +
	"PomBase\tG3\tg3\tNOT\tGO:0007049\tPMID:1\tIMP\t\tP\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n" +
	"PomBase\tG4\tg4\t\tGO:9999999\tPMID:1\tIMP\t\tP\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n" +
	"PomBase\tG5\tg5\t\tGO:0000001\tPMID:1\tIMP\t\tP\tprotein\t\tprotein\ttaxon:4896\t20240101\tPomBase\t\t\n"
