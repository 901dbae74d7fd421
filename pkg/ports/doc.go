/*
Package ports defines the driven ports (capability interfaces) of the OpenPortal engine.

These interfaces decouple the action handlers from the host application: the
widget layer, the backend and the browser-like services are reached only through
them. Implementations are shared, externally owned singletons; the engine never
holds exclusive locks on them and any request de-duplication is their own concern.

# Key Interfaces

  - HTTPClient: issues declarative HTTP requests for apiCall/executeAction.
  - Navigator: route changes (navigate, goBack, reload).
  - Toaster: transient feedback messages.
  - ModalService: dialogs and modals.
  - DatasourceService: refreshes named datasources.
  - CacheService: invalidates cached entries by key or prefix.
  - FileTransfer: downloads and uploads.
  - FormLocator: addresses mounted forms by ID for submitForm/validateForm/resetForm.
*/
package ports
