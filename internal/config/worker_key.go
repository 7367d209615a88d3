package config

type WorkerKeyStruct struct {
	CatalogImportQueue string
}

var WorkerKey = &WorkerKeyStruct{
	CatalogImportQueue: "catalog_import_queue",
}
